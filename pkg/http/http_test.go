package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestClient_SendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("instType") != "SPOT" || r.Header.Get("User-Agent") != "test/1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"code":"0"}`))
	}))
	defer srv.Close()

	c := NewClient(WithUserAgent("test/1"))
	var body []byte
	err := c.SendAndParse(context.Background(), &RequestOptions{
		URL:         srv.URL + "/market/tickers",
		QueryParams: map[string][]string{"instType": {"SPOT"}},
	}, &body)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if string(body) != `{"code":"0"}` {
		t.Fatalf("unexpected body: %s", body)
	}

	var decoded struct{ Code string }
	if err := c.SendAndParse(context.Background(), &RequestOptions{
		URL:         srv.URL,
		QueryParams: map[string][]string{"instType": {"SPOT"}},
	}, &decoded); err != nil || decoded.Code != "0" {
		t.Fatalf("decode: %v %+v", err, decoded)
	}
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	err := NewClient().SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, nil)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusTooManyRequests || se.Body != "slow down" || !se.Temporary() {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

type listRequest struct {
	Format string `query:"format" default:"json" validate:"oneof=json csv"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?format=xml", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	got := ReadAndValidateRequest(c, &listRequest{})
	errs, ok := got.([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Field != "format" || errs[0].Code != "ERR_ONEOF" {
		t.Fatalf("unexpected validation result: %#v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	r := &listRequest{}
	if got := ReadAndValidateRequest(c, r); got != nil {
		t.Fatalf("unexpected errors: %#v", got)
	}
	if r.Format != "json" {
		t.Fatalf("default not applied: %q", r.Format)
	}
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	if err := AppErrorResponse(c, ConflictError("refresh already running")); err != nil {
		t.Fatalf("respond: %v", err)
	}
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	var env struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != http.StatusConflict || len(env.Data) != 1 || env.Data[0].Code != "ERR_CONFLICT" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}
