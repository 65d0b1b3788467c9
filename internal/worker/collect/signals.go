package collect

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// PageSignals はサイトページから抽出したオンページシグナル。
// SEO指標サンプルの算出に使用する。
type PageSignals struct {
	Title           string
	MetaDescription string
	HeadingCount    int
	LinkCount       int
}

// ExtractSignals はHTMLドキュメントをパースし、オンページシグナルを抽出する。
// title、meta description、見出し数(h1-h6)、リンク数(a href)を収集する。
func ExtractSignals(r io.Reader) (*PageSignals, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	signals := &PageSignals{}
	walkNode(doc, signals)
	signals.Title = strings.TrimSpace(signals.Title)
	signals.MetaDescription = strings.TrimSpace(signals.MetaDescription)

	return signals, nil
}

// walkNode はDOMツリーを再帰的に走査してシグナルを収集する。
func walkNode(n *html.Node, signals *PageSignals) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "title":
			if signals.Title == "" {
				signals.Title = textContent(n)
			}
		case "meta":
			if signals.MetaDescription == "" && metaName(n) == "description" {
				signals.MetaDescription = metaContent(n)
			}
		case "h1", "h2", "h3", "h4", "h5", "h6":
			signals.HeadingCount++
		case "a":
			if hasAttr(n, "href") {
				signals.LinkCount++
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNode(c, signals)
	}
}

// textContent は要素配下のテキストノードを連結して返す。
func textContent(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// metaName はmeta要素のname属性を小文字で返す。
func metaName(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "name" {
			return strings.ToLower(strings.TrimSpace(attr.Val))
		}
	}
	return ""
}

// metaContent はmeta要素のcontent属性を返す。
func metaContent(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "content" {
			return attr.Val
		}
	}
	return ""
}

// hasAttr は指定属性の有無を返す。
func hasAttr(n *html.Node, key string) bool {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return true
		}
	}
	return false
}
