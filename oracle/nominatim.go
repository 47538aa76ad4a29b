package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"auto_sniper/httputil"
)

// Nominatim geocodes against an OpenStreetMap Nominatim instance.
type Nominatim struct {
	base  url.URL
	http  *http.Client
	retry httputil.Retry
}

func NewNominatim(baseURL string, client *http.Client) (*Nominatim, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Nominatim{base: *base, http: client, retry: httputil.DefaultRetry}, nil
}

func (n *Nominatim) Geocode(ctx context.Context, query string) ([]Place, error) {
	u := n.base.JoinPath("/search")
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	u.RawQuery = params.Encode()

	var places []Place
	err := n.retry.Do(ctx, "geocode", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return httputil.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := n.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
		}
		if err := json.Unmarshal(body, &places); err != nil {
			return httputil.Permanent(NewValidationWrap("decode geocoder response", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return places, nil
}
