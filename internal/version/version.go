package version

import (
	"encoding/json"
	"net/http"
)

// Set at build time via -ldflags.
var (
	GitRepo          string
	LatestReleaseTag string
	GitShortSha      string
)

type Response struct {
	Repo             string `json:"repo"`
	LatestReleaseTag string `json:"latest_release_tag"`
	GitShortSha      string `json:"git_short_sha"`
}

func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Response{
			Repo:             GitRepo,
			LatestReleaseTag: LatestReleaseTag,
			GitShortSha:      GitShortSha,
		})
	})
}
