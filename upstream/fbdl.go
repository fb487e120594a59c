package upstream

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFacebookVideo 从解析页面中提取元数据：
//
//	.box img[src]          → thumb
//	.box .info h2          → title
//	.box .info p（首个）    → desc，去掉 "Description:" 前缀
//	.box .info p（末个）    → duration，去掉 "Duration:" 前缀
//	#sdLink[href] / #hdLink[href]
func ParseFacebookVideo(r io.Reader) (*FacebookVideo, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("解析 HTML 失败: %w", err)
	}
	out := &FacebookVideo{}
	box := find(doc, func(n *html.Node) bool { return hasClass(n, "box") })
	if box != nil {
		if img := find(box, isAtom(atom.Img)); img != nil {
			out.Thumb = nonEmpty(attr(img, "src"))
		}
		if info := find(box, func(n *html.Node) bool { return hasClass(n, "info") }); info != nil {
			if h2 := find(info, isAtom(atom.H2)); h2 != nil {
				out.Title = nonEmpty(strings.TrimSpace(text(h2)))
			}
			if ps := findAll(info, isAtom(atom.P)); len(ps) > 0 {
				first := strings.Replace(text(ps[0]), "Description:", "", 1)
				out.Desc = nonEmpty(strings.TrimSpace(first))
				last := strings.Replace(text(ps[len(ps)-1]), "Duration:", "", 1)
				out.Duration = nonEmpty(strings.TrimSpace(last))
			}
		}
	}
	if sd := find(doc, hasID("sdLink")); sd != nil {
		out.SD = nonEmpty(attr(sd, "href"))
	}
	if hd := find(doc, hasID("hdLink")); hd != nil {
		out.HD = nonEmpty(attr(hd, "href"))
	}
	return out, nil
}

func isAtom(a atom.Atom) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && n.DataAtom == a }
}

func hasID(id string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Type == html.ElementNode && attr(n, "id") == id }
}

func hasClass(n *html.Node, class string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// find 先序遍历 n 的后代（不含 n 本身），返回第一个匹配的节点。
func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if got := find(c, match); got != nil {
			return got
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			out = append(out, c)
		}
		out = append(out, findAll(c, match)...)
	}
	return out
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
