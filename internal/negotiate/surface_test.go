package negotiate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/cursorkit/switchboard/internal/token"
)

func parseHTML(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestFindConsentControl(t *testing.T) {
	tests := []struct {
		name string
		page string
		want string // expected control text, "" means not found
	}{
		{
			name: "exact affirmative button",
			page: `<form action="/ok"><button>Cancel</button><button>Yes, Log In</button></form>`,
			want: "Yes, Log In",
		},
		{
			name: "specific rule outranks loose rule",
			page: `<button>Login help</button><button>Yes, log in</button>`,
			want: "Yes, log in",
		},
		{
			name: "localized control",
			page: `<div role="button">确认授权</div>`,
			want: "确认授权",
		},
		{
			name: "submit input value",
			page: `<form><input type="submit" value="Approve"/></form>`,
			want: "Approve",
		},
		{
			name: "nothing matches",
			page: `<button>Cancel</button><a href="/back">Go back</a>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctl := findConsentControl(parseHTML(t, tt.page))
			if tt.want == "" {
				if ctl != nil {
					t.Fatalf("found unexpected control %q", ctl.text)
				}
				return
			}
			if ctl == nil {
				t.Fatal("control not found")
			}
			if ctl.text != tt.want {
				t.Errorf("control = %q, want %q", ctl.text, tt.want)
			}
		})
	}
}

func TestFormPayload(t *testing.T) {
	doc := parseHTML(t, `<form action="/approve" method="post">
		<input type="hidden" name="state" value="xyz"/>
		<input type="hidden" name="uuid" value="u-1"/>
		<button>Yes, Log In</button></form>`)
	ctl := findConsentControl(doc)
	if ctl == nil || ctl.form == nil {
		t.Fatal("form control not found")
	}
	action, method, fields := formPayload(ctl.form)
	if action != "/approve" || method != "POST" {
		t.Errorf("action/method = %q %q", action, method)
	}
	if fields.Get("state") != "xyz" || fields.Get("uuid") != "u-1" {
		t.Errorf("fields = %v", fields)
	}
}

func TestPageSurface_OpenAndConfirm(t *testing.T) {
	var approved bool
	var sawCookie bool

	mux := http.NewServeMux()
	mux.HandleFunc("/consent", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(token.CookieName); err == nil && c.Value == "sess-1" {
			sawCookie = true
		}
		w.Write([]byte(`<html><body><form action="/approve" method="post">
			<input type="hidden" name="challenge" value="ch"/>
			<button>Yes, Log In</button></form></body></html>`))
	})
	mux.HandleFunc("/approve", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("approve method = %s", r.Method)
		}
		if err := r.ParseForm(); err == nil && r.PostForm.Get("challenge") != "ch" {
			t.Errorf("form fields not submitted: %v", r.PostForm)
		}
		approved = true
		w.Write([]byte(`<html><body>Authorized</body></html>`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := NewPageSurface()
	cookie := &http.Cookie{Name: token.CookieName, Value: "sess-1", Path: "/"}
	if err := s.Open(context.Background(), srv.URL+"/consent", cookie); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !sawCookie {
		t.Error("session cookie not injected into consent request")
	}

	result, err := s.Confirm(context.Background())
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if result != ConfirmClicked {
		t.Fatalf("Confirm = %v, want ConfirmClicked", result)
	}
	if !approved {
		t.Error("consent form was not submitted")
	}

	// The advanced page has no control anymore.
	if result, _ := s.Confirm(context.Background()); result != ConfirmNotFound {
		t.Errorf("second Confirm = %v, want ConfirmNotFound", result)
	}
}
