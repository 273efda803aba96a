package shotsvc

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/screenshot"
)

const (
	webshrinkerBaseURL = "https://api.webshrinker.com/"
	webshrinkerSize    = "3xlarge"
	maxImageSize       = 10 << 20
)

// WebshrinkerCapturer fetches thumbnails from the Webshrinker API.
// The picture size is chosen by the API; a 202 means the thumbnail is not ready yet.
type WebshrinkerCapturer struct {
	key     string
	secret  string
	baseURL string
	client  *http.Client
}

var _ screenshot.Capturer = (*WebshrinkerCapturer)(nil)

func NewWebshrinkerCapturer(conf *core.Config) *WebshrinkerCapturer {
	return &WebshrinkerCapturer{
		key:     conf.Screenshots.WebshrinkerKey,
		secret:  conf.Screenshots.WebshrinkerSecret,
		baseURL: webshrinkerBaseURL,
		client:  http.DefaultClient,
	}
}

// signedURL builds a v2 thumbnail request signed with md5("secret:request").
func (c *WebshrinkerCapturer) signedURL(link string) string {
	params := url.Values{}
	params.Set("key", c.key)
	params.Set("size", webshrinkerSize)
	request := fmt.Sprintf("thumbnails/v2/%s?%s", base64.URLEncoding.EncodeToString([]byte(link)), params.Encode())
	sum := md5.Sum([]byte(c.secret + ":" + request))
	return c.baseURL + request + "&hash=" + hex.EncodeToString(sum[:])
}

func (c *WebshrinkerCapturer) Capture(ctx context.Context, link string, _, _ int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.signedURL(link), nil)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calling webshrinker")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
		return data, errors.Wrap(err, "reading thumbnail")
	case http.StatusAccepted:
		return nil, errors.Wrap(screenshot.ErrTimeout, "thumbnail not ready")
	default:
		return nil, errors.Errorf("webshrinker responded %d", resp.StatusCode)
	}
}
