package view

import (
	"embed"
	"html/template"
	"math"
	"strconv"
	"strings"
)

//go:embed templates/*.html
var files embed.FS

// Templates 模板打进二进制，测试和部署都不依赖工作目录
func Templates(apiBase string) *template.Template {
	return template.Must(template.New("").Funcs(Funcs(apiBase)).ParseFS(files, "templates/*.html"))
}

func Funcs(apiBase string) template.FuncMap {
	return template.FuncMap{
		"usd": USD,
		"img": func(u string) string { return ImageURL(apiBase, u) },
	}
}

// USD 千分位价格，如 89990 → "$89,990"
func USD(p float64) string {
	n := int64(math.Round(p))
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	out := "$" + b.String()
	if neg {
		out = "-" + out
	}
	return out
}

// ImageURL 绝对地址原样返回，相对路径拼上 API 源
func ImageURL(base, u string) string {
	if u == "" {
		return ""
	}
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(u, "/")
}
