package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Translator converts message text into a recipient's preferred language.
type Translator interface {
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// RapidAPI calls the nlp-translation endpoint on RapidAPI.
type RapidAPI struct {
	host string
	key  string
	hc   *http.Client
}

func NewRapidAPI(host, key string) *RapidAPI {
	return &RapidAPI{host: host, key: key, hc: &http.Client{Timeout: 10 * time.Second}}
}

type rapidAPIResponse struct {
	TranslatedText string `json:"translated_text"`
}

func (r *RapidAPI) Translate(ctx context.Context, text, from, to string) (string, error) {
	q := url.Values{}
	q.Set("text", text)
	q.Set("from", from)
	q.Set("to", to)
	u := "https://" + r.host + "/v1/translate?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", errors.Wrap(err, "build translate request")
	}
	req.Header.Set("X-RapidAPI-Key", r.key)
	req.Header.Set("X-RapidAPI-Host", r.host)

	resp, err := r.hc.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "call translate")
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		return "", errors.Errorf("translate returned %d", resp.StatusCode)
	}
	var out rapidAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode translate response")
	}
	return out.TranslatedText, nil
}
