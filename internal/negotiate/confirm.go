package negotiate

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// keywordRule describes one heuristic for recognizing the consent
// confirmation control. Rules are ordered: earlier rules are more specific.
// Keeping them as data makes the matcher testable and localizable.
type keywordRule struct {
	all []string // every keyword must appear
	any []string // at least one keyword must appear
}

var consentRules = []keywordRule{
	{all: []string{"yes", "log in"}},
	{all: []string{"yes", "login"}},
	{any: []string{"yes", "log in", "login", "授权", "确认", "allow", "approve"}},
}

func (r keywordRule) match(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range r.all {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	if len(r.all) > 0 {
		return true
	}
	for _, kw := range r.any {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// control is a clickable element found in the consent page plus everything
// needed to trigger it over HTTP: the enclosing form, or a plain link.
type control struct {
	text string
	href string
	form *html.Node
}

// findConsentControl scans the rendered consent page for the
// confirmation control, trying each keyword rule in order.
func findConsentControl(doc *html.Node) *control {
	candidates := collectControls(doc)
	for _, rule := range consentRules {
		for _, c := range candidates {
			if rule.match(c.text) {
				return c
			}
		}
	}
	return nil
}

func collectControls(doc *html.Node) []*control {
	var out []*control
	var walk func(n *html.Node, form *html.Node)
	walk = func(n *html.Node, form *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "form":
				form = n
			case "button":
				out = append(out, &control{text: nodeText(n), form: form})
			case "a":
				out = append(out, &control{text: nodeText(n), href: attr(n, "href"), form: form})
			case "input":
				typ := strings.ToLower(attr(n, "type"))
				if typ == "button" || typ == "submit" {
					out = append(out, &control{text: attr(n, "value"), form: form})
				}
			default:
				if attr(n, "role") == "button" {
					out = append(out, &control{text: nodeText(n), form: form})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, form)
		}
	}
	walk(doc, nil)
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// formPayload flattens a form into its submit action, method and hidden
// field values.
func formPayload(form *html.Node) (action, method string, fields url.Values) {
	action = attr(form, "action")
	method = strings.ToUpper(attr(form, "method"))
	if method == "" {
		method = "GET"
	}
	fields = url.Values{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" {
			if name := attr(n, "name"); name != "" {
				fields.Set(name, attr(n, "value"))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(form)
	return action, method, fields
}
