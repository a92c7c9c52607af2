package zwiftpower

import (
	"bytes"
	"encoding/json"
	"net/url"
	"sync"

	"bakpdlbot/internal/httpcache"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// Response is a fetched zwiftpower page or json document.
type Response struct {
	// URL is the final url after redirects.
	URL        *url.URL
	StatusCode int
	Body       []byte
	FromCache  bool

	docOnce sync.Once
	doc     *goquery.Document
	docErr  error
}

func newResponse(res *resty.Response) *Response {
	out := &Response{
		StatusCode: res.StatusCode(),
		Body:       res.Body(),
	}
	if raw := res.RawResponse; raw != nil {
		out.FromCache = httpcache.FromCache(raw)
		if raw.Request != nil {
			out.URL = raw.Request.URL
		}
	}
	if out.URL == nil {
		out.URL, _ = url.Parse(res.Request.URL)
	}
	return out
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}

// Document parses the body as html, the parsed document is kept for later calls.
func (r *Response) Document() (*goquery.Document, error) {
	r.docOnce.Do(func() {
		r.doc, r.docErr = goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
		if r.doc != nil {
			r.doc.Url = r.URL
		}
	})
	return r.doc, r.docErr
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Resolve resolves a (possibly relative) link found in the response.
func (r *Response) Resolve(ref string) (*url.URL, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	if r.URL == nil {
		return parsed, nil
	}
	return r.URL.ResolveReference(parsed), nil
}

const loginMarker = "form#login"

// LoggedIn reports whether the page does not show the login form.
func (r *Response) LoggedIn() bool {
	if !bytes.Contains(r.Body, []byte("login")) {
		return true
	}
	doc, err := r.Document()
	if err != nil {
		return true
	}
	return doc.Find(loginMarker).Length() == 0
}
