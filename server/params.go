package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/ByLCY/shinapi/card"
)

// requestParams 合并查询串与请求体字段，请求体优先。
// 请求体可以是 JSON 对象、urlencoded 表单或 multipart 表单。
func (s *Server) requestParams(r *http.Request) (card.Params, error) {
	p := card.Params{}
	addValues(p, r.URL.Query())
	if r.Method != http.MethodPost || r.Body == nil || r.ContentLength == 0 {
		return p, nil
	}
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		var body map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, err
			}
			return nil, fmt.Errorf("Invalid JSON body: %w", err)
		}
		for k, v := range body {
			if n, ok := v.(json.Number); ok {
				v = n.String()
			}
			p[k] = v
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(s.maxBody); err != nil {
			return nil, fmt.Errorf("Invalid form body: %w", err)
		}
		addValues(p, r.MultipartForm.Value)
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("Invalid form body: %w", err)
		}
		addValues(p, r.PostForm)
	}
	return p, nil
}

func addValues(p card.Params, v url.Values) {
	for k, vals := range v {
		if len(vals) > 0 {
			p[k] = vals[0]
		}
	}
}
