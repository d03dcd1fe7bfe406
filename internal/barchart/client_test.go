package barchart

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ClientTestSuite struct {
	suite.Suite
	server  *httptest.Server
	handler http.HandlerFunc
	lastReq *http.Request
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (s *ClientTestSuite) SetupTest() {
	s.handler = nil
	s.lastReq = nil
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.lastReq = r
		s.handler(w, r)
	}))
}

func (s *ClientTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientTestSuite) newClient(opts ...Option) *Client {
	opts = append([]Option{
		WithBaseURL(s.server.URL + "/getHistory.json"),
		WithHTTPClient(s.server.Client()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	c, err := NewClient(testCreds, opts...)
	s.Require().NoError(err)
	return c
}

func respond(contentType string, status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

const okBody = `{"status":{"code":200,"message":"Success."},"results":[
{"symbol":"AAPL","timestamp":"2018-01-02T00:00:00-06:00","tradingDay":"2018-01-02","open":170.16,"high":172.3,"low":169.26,"close":172.26,"volume":25555934},
{"symbol":"AAPL","timestamp":"2018-01-03T00:00:00-06:00","tradingDay":"2018-01-03","open":172.53,"high":174.55,"low":171.96,"close":172.23,"volume":29517899}]}`

func (s *ClientTestSuite) TestNewClient_RequiresPrimary() {
	c, err := NewClient(Credentials{Backup: "b"})
	s.Error(err)
	s.Nil(c)
}

func (s *ClientTestSuite) TestFetch_ReturnsResultsUnmodified() {
	s.handler = respond("application/json; charset=UTF-8", http.StatusOK, okBody)

	bars, err := s.newClient().Fetch(context.Background(), "AAPL", Daily)
	s.Require().NoError(err)
	s.Require().Len(bars, 2)

	var env struct {
		Results []RawBar `json:"results"`
	}
	s.Require().NoError(json.Unmarshal([]byte(okBody), &env))
	s.Equal(env.Results, bars)
	s.JSONEq(`"2018-01-02T00:00:00-06:00"`, string(bars[0]["timestamp"]))
	s.JSONEq(`"2018-01-03T00:00:00-06:00"`, string(bars[1]["timestamp"]))
}

func (s *ClientTestSuite) TestFetch_DailyUsesPrimaryKey() {
	s.handler = respond("application/json", http.StatusOK, okBody)

	_, err := s.newClient().Fetch(context.Background(), "FB", Daily)
	s.Require().NoError(err)

	q := s.lastReq.URL.Query()
	s.Equal("/getHistory.json", s.lastReq.URL.Path)
	s.Equal("FB", q.Get("symbol"))
	s.Equal("daily", q.Get("type"))
	s.Equal("primary-token", q.Get("key"))
	s.Equal("20090203000000-06", q.Get("startDate"))
}

func (s *ClientTestSuite) TestFetch_IntradayUsesBackupKey() {
	s.handler = respond("application/json", http.StatusOK, okBody)

	_, err := s.newClient().Fetch(context.Background(), "AAPL", Intraday)
	s.Require().NoError(err)

	q := s.lastReq.URL.Query()
	s.Equal("minutes", q.Get("type"))
	s.Equal("5", q.Get("interval"))
	s.Equal("backup-token", q.Get("key"))
}

func (s *ClientTestSuite) TestFetch_NonJSONIsFatal() {
	s.handler = respond("text/html", http.StatusOK, "<html>limit reached</html>")

	bars, err := s.newClient().Fetch(context.Background(), "AAPL", Daily)
	s.Nil(bars)
	s.Require().Error(err)
	s.Equal(KindNonJSON, KindOf(err))
	s.True(IsFatal(err))

	var fe *FetchError
	s.Require().True(errors.As(err, &fe))
	s.Equal("AAPL", fe.Ticker)
	s.Equal(Daily, fe.Interval)
}

func (s *ClientTestSuite) TestFetch_BodyFailures() {
	cases := []struct {
		name string
		body string
		kind Kind
	}{
		{"null", "null", KindNullBody},
		{"empty object", "{}", KindEmptyBody},
		{"empty body", "", KindEmptyBody},
		{"empty results", `{"status":{"code":204,"message":"Success, but no content."},"results":[]}`, KindNoResults},
		{"null results", `{"results":null}`, KindNoResults},
		{"missing results", `{"status":{"code":200}}`, KindNoResults},
		{"malformed", `{"results":[`, KindMalformedBody},
		{"array body", `[1,2]`, KindMalformedBody},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.handler = respond("application/json", http.StatusOK, tc.body)
			bars, err := s.newClient().Fetch(context.Background(), "BADTICKER", Daily)
			s.Nil(bars)
			s.Equal(tc.kind, KindOf(err))
			s.False(IsFatal(err))
		})
	}
}

func (s *ClientTestSuite) TestFetch_HTTPError() {
	s.handler = respond("application/json", http.StatusInternalServerError, `{"error":"boom"}`)

	_, err := s.newClient().Fetch(context.Background(), "AAPL", Daily)
	s.Equal(KindHTTP, KindOf(err))
	s.False(IsFatal(err))

	var fe *FetchError
	s.Require().True(errors.As(err, &fe))
	s.Equal(http.StatusInternalServerError, fe.Status)
	s.Contains(err.Error(), "boom")
}

func (s *ClientTestSuite) TestFetch_Timeout() {
	release := make(chan struct{})
	defer close(release)
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}
	hc := s.server.Client()
	hc.Timeout = 50 * time.Millisecond

	_, err := s.newClient(WithHTTPClient(hc)).Fetch(context.Background(), "AAPL", Daily)
	s.Equal(KindTimeout, KindOf(err))
	s.False(IsFatal(err))
}

func (s *ClientTestSuite) TestFetch_UnknownTransport() {
	s.handler = respond("application/json", http.StatusOK, okBody)
	c := s.newClient()
	s.server.Close()

	_, err := c.Fetch(context.Background(), "AAPL", Daily)
	s.Equal(KindUnknownTransport, KindOf(err))
}

func (s *ClientTestSuite) TestFetch_TransportErrorsHideTokens() {
	release := make(chan struct{})
	defer close(release)
	s.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}
	hc := s.server.Client()
	hc.Timeout = 50 * time.Millisecond

	_, timeoutErr := s.newClient(WithHTTPClient(hc)).Fetch(context.Background(), "AAPL", Intraday)
	s.Require().Equal(KindTimeout, KindOf(timeoutErr))

	c := s.newClient()
	s.server.Close()
	_, transportErr := c.Fetch(context.Background(), "AAPL", Intraday)
	s.Require().Equal(KindUnknownTransport, KindOf(transportErr))

	for _, err := range []error{timeoutErr, transportErr} {
		msg := err.Error()
		s.NotContains(msg, testCreds.Primary)
		s.NotContains(msg, testCreds.Backup)
		s.False(strings.Contains(msg, "apikey="), msg)
		s.Contains(msg, "/getHistory.json")
	}
}

func (s *ClientTestSuite) TestStripQuery() {
	plain := errors.New("boom")
	s.Same(plain, stripQuery(plain))

	err := stripQuery(&url.Error{Op: "Get", URL: "http://host/getHistory.json?apikey=p&key=b", Err: context.DeadlineExceeded})
	s.Equal(`Get "http://host/getHistory.json": context deadline exceeded`, err.Error())
	s.True(isTimeout(err))
}

func (s *ClientTestSuite) TestFetch_RateLimitedClient() {
	s.handler = respond("application/json", http.StatusOK, okBody)
	c := s.newClient(WithHTTPClient(NewLimitedClient(s.server.Client(), 1000)))

	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), "AAPL", Daily)
		s.Require().NoError(err)
	}
}

func (s *ClientTestSuite) TestFetch_RateLimiterHonorsContext() {
	s.handler = respond("application/json", http.StatusOK, okBody)
	c := s.newClient(WithHTTPClient(NewLimitedClient(s.server.Client(), 0.001)))

	_, err := c.Fetch(context.Background(), "AAPL", Daily)
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Fetch(ctx, "AAPL", Daily)
	s.Error(err)
	s.False(IsFatal(err))
}
