package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ecertify/internal/certificate"
	"ecertify/internal/database"
	"ecertify/internal/layout"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.User{}, &database.Certificate{}, &database.Asset{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestHandler(t *testing.T, db *gorm.DB) *CertificateHandler {
	t.Helper()
	// 指向不可达地址：入队失败会被忽略，不影响被测路径。
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	return NewCertificateHandler(db, client, nil, nil, 0)
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func testContext(t *testing.T, req *http.Request, userID uint) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set("userID", userID)
	return c, w
}

func seedCertificate(t *testing.T, db *gorm.DB, userID uint, doc certificate.Document) database.Certificate {
	t.Helper()
	content, err := json.Marshal(&doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	cert := database.Certificate{
		StudentName: doc.StudentName,
		CollegeName: doc.CollegeName,
		EventName:   doc.EventName,
		TemplateKey: doc.TemplateKey,
		Content:     datatypes.JSON(content),
		UserID:      userID,
		Status:      database.StatusDraft,
	}
	if err := db.Create(&cert).Error; err != nil {
		t.Fatalf("seed certificate: %v", err)
	}
	return cert
}

func TestCreateCertificates_FansOutPerStudent(t *testing.T) {
	db := newTestDB(t)
	h := newTestHandler(t, db)

	doc := certificate.Document{
		CollegeName: "Engineering College",
		EventName:   "Tech Summit",
		TemplateKey: "minimal",
		Students: []certificate.Student{
			{Name: "Alice", Email: "alice@example.edu", Course: "CS", Position: "Lead"},
			{Name: "Bob", Email: "bob@example.edu", Course: "EE"},
			{Name: "Carol"},
		},
	}

	c, w := testContext(t, jsonRequest(t, http.MethodPost, "/v1/certificates", doc), 1)
	h.CreateCertificates(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	var count int64
	if err := db.Model(&database.Certificate{}).Where("user_id = ?", 1).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 certificates, got %d", count)
	}

	var certs []database.Certificate
	if err := db.Order("id").Find(&certs).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	names := map[string]bool{}
	byName := map[string]certificate.Student{}
	for _, cert := range certs {
		names[cert.StudentName] = true

		var stored certificate.Document
		if err := json.Unmarshal(cert.Content, &stored); err != nil {
			t.Fatalf("unmarshal stored content: %v", err)
		}
		if len(stored.Students) != 1 {
			t.Fatalf("per-recipient document must keep its own entry, got %d", len(stored.Students))
		}
		if stored.Students[0].Name != cert.StudentName {
			t.Errorf("students entry %q does not match recipient %q", stored.Students[0].Name, cert.StudentName)
		}
		byName[stored.Students[0].Name] = stored.Students[0]
		if stored.EventName != "Tech Summit" {
			t.Errorf("shared fields should be copied, got event %q", stored.EventName)
		}
	}
	if !names["Alice"] || !names["Bob"] || !names["Carol"] {
		t.Errorf("unexpected recipient names: %v", names)
	}
	if alice := byName["Alice"]; alice.Email != "alice@example.edu" || alice.Course != "CS" || alice.Position != "Lead" {
		t.Errorf("per-recipient fields lost: %+v", alice)
	}
	if bob := byName["Bob"]; bob.Email != "bob@example.edu" || bob.Course != "EE" {
		t.Errorf("per-recipient fields lost: %+v", bob)
	}
}

func TestCreateCertificates_SingleRecipient(t *testing.T) {
	db := newTestDB(t)
	h := newTestHandler(t, db)

	doc := certificate.Document{StudentName: "Dana", EventName: "Workshop"}
	c, w := testContext(t, jsonRequest(t, http.MethodPost, "/v1/certificates", doc), 1)
	h.CreateCertificates(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	var count int64
	db.Model(&database.Certificate{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 certificate, got %d", count)
	}
}

func TestCreateCertificates_RejectsEmptyRecipient(t *testing.T) {
	db := newTestDB(t)
	h := newTestHandler(t, db)

	c, w := testContext(t, jsonRequest(t, http.MethodPost, "/v1/certificates", certificate.Document{}), 1)
	h.CreateCertificates(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateCertificates_DropsUnnamedSignatories(t *testing.T) {
	db := newTestDB(t)
	h := newTestHandler(t, db)

	doc := certificate.Document{
		StudentName: "Eve",
		Signatories: []certificate.Signatory{
			{Name: "Dean", Designation: "Dean"},
			{Name: "  ", Designation: "Ghost"},
			{Name: "Registrar"},
		},
	}
	c, w := testContext(t, jsonRequest(t, http.MethodPost, "/v1/certificates", doc), 1)
	h.CreateCertificates(c)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	var cert database.Certificate
	if err := db.First(&cert).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	var stored certificate.Document
	if err := json.Unmarshal(cert.Content, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(stored.Signatories) != 2 {
		t.Fatalf("expected 2 signatories, got %d", len(stored.Signatories))
	}
	for _, s := range stored.Signatories {
		if s.Designation == "Ghost" {
			t.Error("blank-named signatory should be dropped")
		}
	}
}

func TestGetCertificate_OwnershipIsNotNotFound(t *testing.T) {
	db := newTestDB(t)
	h := newTestHandler(t, db)

	cert := seedCertificate(t, db, 1, certificate.Document{StudentName: "Alice"})

	// 他人访问：存在但无权 → 403。
	req := httptest.NewRequest(http.MethodGet, "/v1/certificates/"+strconv.Itoa(int(cert.ID)), nil)
	c, w := testContext(t, req, 2)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(cert.ID))}}
	h.GetCertificate(c)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign certificate: expected 403, got %d", w.Code)
	}

	// 不存在 → 404。
	req = httptest.NewRequest(http.MethodGet, "/v1/certificates/9999", nil)
	c, w = testContext(t, req, 2)
	c.Params = gin.Params{{Key: "id", Value: "9999"}}
	h.GetCertificate(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing certificate: expected 404, got %d", w.Code)
	}

	// 本人访问 → 200。
	req = httptest.NewRequest(http.MethodGet, "/v1/certificates/"+strconv.Itoa(int(cert.ID)), nil)
	c, w = testContext(t, req, 1)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(cert.ID))}}
	h.GetCertificate(c)
	if w.Code != http.StatusOK {
		t.Fatalf("own certificate: expected 200, got %d", w.Code)
	}
}

func TestUpdateCertificate_PartialMerge(t *testing.T) {
	db := newTestDB(t)
	h := newTestHandler(t, db)

	cert := seedCertificate(t, db, 1, certificate.Document{
		StudentName: "Alice",
		CollegeName: "Engineering College",
		EventName:   "Tech Summit",
		TemplateKey: "minimal",
	})

	patch := map[string]any{"eventName": "Winter Summit"}
	req := jsonRequest(t, http.MethodPatch, "/v1/certificates/"+strconv.Itoa(int(cert.ID)), patch)
	c, w := testContext(t, req, 1)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(cert.ID))}}
	h.UpdateCertificate(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var reloaded database.Certificate
	if err := db.First(&reloaded, cert.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	var stored certificate.Document
	if err := json.Unmarshal(reloaded.Content, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stored.EventName != "Winter Summit" {
		t.Errorf("patched key not applied: %q", stored.EventName)
	}
	if stored.StudentName != "Alice" || stored.CollegeName != "Engineering College" || stored.TemplateKey != "minimal" {
		t.Errorf("untouched keys must survive the merge: %+v", stored)
	}
	if reloaded.EventName != "Winter Summit" {
		t.Errorf("denormalized column not refreshed: %q", reloaded.EventName)
	}
}

func TestUpdateCertificate_ForeignUserCannotWrite(t *testing.T) {
	db := newTestDB(t)
	h := newTestHandler(t, db)

	cert := seedCertificate(t, db, 1, certificate.Document{StudentName: "Alice", EventName: "Summit"})

	patch := map[string]any{"eventName": "Hijacked"}
	req := jsonRequest(t, http.MethodPatch, "/v1/certificates/"+strconv.Itoa(int(cert.ID)), patch)
	c, w := testContext(t, req, 2)
	c.Params = gin.Params{{Key: "id", Value: strconv.Itoa(int(cert.ID))}}
	h.UpdateCertificate(c)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	var reloaded database.Certificate
	if err := db.First(&reloaded, cert.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.EventName != "Summit" {
		t.Error("ownership check must run before any mutation")
	}
}

func TestGetCertificate_InvalidID(t *testing.T) {
	db := newTestDB(t)
	h := newTestHandler(t, db)

	req := httptest.NewRequest(http.MethodGet, "/v1/certificates/abc", nil)
	c, w := testContext(t, req, 1)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.GetCertificate(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListCertificates_OnlyOwn(t *testing.T) {
	db := newTestDB(t)
	h := newTestHandler(t, db)

	seedCertificate(t, db, 1, certificate.Document{StudentName: "Mine"})
	seedCertificate(t, db, 2, certificate.Document{StudentName: "Theirs"})

	req := httptest.NewRequest(http.MethodGet, "/v1/certificates", nil)
	c, w := testContext(t, req, 1)
	h.ListCertificates(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var items []certificateListItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].StudentName != "Mine" {
		t.Errorf("unexpected list: %+v", items)
	}
}

func TestRasterSafeOrientation(t *testing.T) {
	// 栅格管线只出纵向页，横向参数归一为纵向；打印管线不受影响。
	if got := rasterSafeOrientation("raster", layout.Landscape); got != layout.Portrait {
		t.Errorf("raster landscape not normalized, got %q", got)
	}
	if got := rasterSafeOrientation("raster", layout.Portrait); got != layout.Portrait {
		t.Errorf("raster portrait changed, got %q", got)
	}
	if got := rasterSafeOrientation("", layout.Landscape); got != layout.Landscape {
		t.Errorf("print landscape must pass through, got %q", got)
	}
}
