package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

func TestRedactForm(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "credentials", body: "username=a%40b.c&password=hunter2&rememberMe=on", expected: "password=%3Credacted%3E&rememberMe=on&username=%3Credacted%3E"},
		{name: "no credentials", body: "page=1&pageSize=50", expected: "page=1&pageSize=50"},
		{name: "json", body: `{"password":"x"}`, expected: `{"password":"x"}`},
		{name: "empty", body: "", expected: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, redactForm(tc.body))
		})
	}
}

func TestFormatHeadersRedactsCookies(t *testing.T) {
	headers := http.Header{}
	headers.Set("Set-Cookie", "phpbb3_sid=secret")
	headers.Set("Accept", "text/html")
	require.Equal(t, "Accept: text/html\nSet-Cookie: <redacted>", formatHeaders(headers))
}

func TestInstrumentResty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	tel := NewRecorder()
	client := resty.New().SetBaseURL(server.URL)
	InstrumentResty(client, "test", tel)

	_, err := client.R().Get("/ok")
	require.NoError(t, err)
	_, err = client.R().SetFormData(map[string]string{"password": "hunter2"}).Post("/missing")
	require.NoError(t, err)

	require.Len(t, tel.Reports(SEVERITY_DEBUG, report_resty_request), 2)
	require.Len(t, tel.Reports(SEVERITY_DEBUG, report_resty_response), 2)

	exchanges := tel.Reports(SEVERITY_DEBUG, report_resty_exchange)
	require.Len(t, exchanges, 1)
	dump := exchanges[0].Params[1].(string)
	require.Contains(t, dump, "< 404")
	require.Contains(t, dump, "password=%3Credacted%3E")
	require.NotContains(t, dump, "hunter2")
	require.Empty(t, tel.Reports(SEVERITY_BROKEN, ""))
}
