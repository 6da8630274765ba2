package layout

// certificateTemplate 是两种版式共用的唯一 HTML 模板。历史实现曾在
// 前后端各维护一份模板并逐渐漂移；现在所有渲染目标（交互预览、
// 打印导出、截图缩略）都消费这同一份输出。版式差异全部收敛到
// Go 侧算好的 CSS 字段与少量 if 分支里。
const certificateTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">{{.FontLinks}}
<style>
@page { size: A4; margin: 0 }
html, body { margin: 0; padding: 0; font-family: Arial, sans-serif; background: #ffffff; overflow: hidden; }
.certificate { position: relative; width: {{.Width}}px; height: {{.Height}}px; margin: 0 auto; box-sizing: border-box; {{.CertificateCSS}} }
.content { position: relative; padding: 40px; text-align: center; }
.header { display: flex; justify-content: space-between; align-items: center; margin-bottom: {{.HeaderMarginBottom}}px; }
.logo { height: {{.LogoHeight}}px; object-fit: contain; }
.title-image { height: 48px; object-fit: contain; margin: {{.TitleImageMargin}}; }
.text-block { margin-top: 8px; }
</style>
</head>
<body>
<div class="certificate">
<div class="content">
{{if eq .HeaderMode 0}}<div class="header" style="justify-content:center;"><div style="{{.CollegeCSS}}"><div>{{.CollegeName}}</div></div></div>
{{else if eq .HeaderMode 1}}<div class="header" style="flex-direction:column; gap:8px; justify-content:center; align-items:center;"><img src="{{.LeftLogo}}" class="logo" /><div style="{{.CollegeCSS}}"><div>{{.CollegeName}}</div></div></div>
{{else}}<div class="header"><img src="{{.LeftLogo}}" class="logo" /><div style="{{.CollegeCSS}}"><div>{{.CollegeName}}</div></div><img src="{{.RightLogo}}" class="logo" /></div>
{{end}}
{{if .CollegeDescription}}<div style="{{.CollegeDescCSS}}">{{.CollegeDescription}}</div>
{{end}}
{{if .TitleImage}}<img src="{{.TitleImage}}" alt="title" class="title-image" />{{else}}<h2 style="{{.TitleCSS}}">{{.TitleText}}</h2>{{end}}
<div style="{{.IntroCSS}}">
<span>{{.IntroLeft}} </span>
{{if .EditableName}}<input id="student-name" value="{{.StudentName}}" style="{{.NameCSS}}" />{{else if .Minimal}}<div style="{{.NameCSS}}">{{.StudentName}}</div>{{else}}<span style="{{.NameCSS}}">{{.StudentName}}</span>{{end}}
<span> {{.IntroRight}}</span>
</div>
{{if .StudentCollege}}<div style="{{.StudentCollegeCSS}}">{{.StudentCollege}}</div>
{{end}}
{{range .TextBlocks}}<p class="text-block" style="{{.Style}}">{{.Text}}</p>
{{end}}
{{if .EventDescription}}<div style="{{.EventDescCSS}}">{{.EventDescription}}</div>
{{end}}
<p style="{{.EventLineCSS}}">{{.EventLine}}</p>
{{if .Signatories}}<div style="{{.SignatoriesCSS}}">
{{range .Signatories}}<div style="{{$.SignatoryItemCSS}}">
{{if .SignatureURL}}<img src="{{.SignatureURL}}" alt="signature" style="{{$.SignatureCSS}}" />{{else}}<div style="{{$.SignatureSlotCSS}}"></div>{{end}}
<p style="{{$.SignatoryNameCSS}}">{{.Name}}</p>
<p style="{{$.SignatoryDetailCSS}}">{{.Detail}}</p>
</div>
{{end}}</div>
{{end}}
</div>
</div>
</body>
</html>
`
