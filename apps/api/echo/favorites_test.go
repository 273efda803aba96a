package echoapi_test

import (
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocwc/oeweek2022/core"
	"github.com/ocwc/oeweek2022/core/resource"
)

type toggleResponse struct {
	Token  string `json:"f"`
	Result string `json:"result"`
	Count  int    `json:"count"`
}

func (env *testEnv) toggle(t *testing.T, id int, token string) (int, toggleResponse) {
	t.Helper()
	rec := env.do(newFormRequest(http.MethodPost, "/favorites/toggle/", url.Values{"id": {strconv.Itoa(id)}, "f": {token}}))
	var resp toggleResponse
	if rec.Code == http.StatusOK {
		decode(t, rec, &resp)
	}
	return rec.Code, resp
}

func Test_favorites(t *testing.T) {
	env := setup(t)
	day := env.conf.Week.Start.Add(34 * time.Hour)
	event := env.createResource(t, publishedEvent("Open Day", day))
	other := env.createResource(t, publishedEvent("Open Night", day.Add(8*time.Hour)))
	draft := env.createResource(t, resource.Resource{Title: "Secret Day"})
	asset := env.createResource(t, publishedAsset("Open Textbook"))

	code, resp := env.toggle(t, event.ID, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "added", resp.Result)
	assert.Equal(t, 1, resp.Count)
	require.NotEmpty(t, resp.Token)

	code, resp = env.toggle(t, other.ID, resp.Token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "added", resp.Result)
	assert.Equal(t, 2, resp.Count)

	ids, err := env.codec.Decode(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, []int{event.ID, other.ID}, ids)

	// the list page
	rec := env.do(newRequest(http.MethodGet, "/favorites/?f="+url.QueryEscape(resp.Token)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Open Day")
	assert.Contains(t, rec.Body.String(), "Open Night")

	code, resp = env.toggle(t, event.ID, resp.Token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "removed", resp.Result)
	assert.Equal(t, 1, resp.Count)

	code, _ = env.toggle(t, draft.ID, resp.Token)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = env.toggle(t, asset.ID, resp.Token)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = env.toggle(t, event.ID, "tampered")
	assert.Equal(t, http.StatusBadRequest, code)

	rec = env.do(newRequest(http.MethodGet, "/favorites/?f=tampered"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(newRequest(http.MethodGet, "/favorites/"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No favorites yet")
}

func Test_favoritesFull(t *testing.T) {
	env := setup(t, func(conf *core.Config) { conf.Week.MaxFavorites = 1 })
	day := env.conf.Week.Start.Add(34 * time.Hour)
	event := env.createResource(t, publishedEvent("Open Day", day))
	other := env.createResource(t, publishedEvent("Open Night", day))

	_, first := env.toggle(t, event.ID, "")
	require.Equal(t, "added", first.Result)

	code, resp := env.toggle(t, other.ID, first.Token)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", resp.Result)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, first.Token, resp.Token, "a full list keeps its token")
}
