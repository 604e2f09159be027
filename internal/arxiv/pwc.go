package arxiv

import (
	"context"
	"fmt"
	"net/url"
)

// DefaultPWCBase is the Papers with Code API.
const DefaultPWCBase = "https://paperswithcode.com/api/v1"

type pwcList struct {
	Count   int `json:"count"`
	Results []struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"results"`
}

// FetchCodeURL returns the first repository Papers with Code links to the
// arXiv paper, or "" when none is known.
func (e *Enricher) FetchCodeURL(ctx context.Context, id string) (string, error) {
	var papers pwcList
	if err := e.retryer.GetJSON(ctx, e.PWCBase+"/papers/?arxiv_id="+url.QueryEscape(id), nil, &papers, "papers with code"); err != nil {
		return "", err
	}
	if papers.Count == 0 || len(papers.Results) == 0 {
		return "", nil
	}

	var repos pwcList
	reposURL := fmt.Sprintf("%s/papers/%s/repositories/", e.PWCBase, url.PathEscape(papers.Results[0].ID))
	if err := e.retryer.GetJSON(ctx, reposURL, nil, &repos, "papers with code"); err != nil {
		return "", err
	}
	if repos.Count == 0 || len(repos.Results) == 0 {
		return "", nil
	}
	return repos.Results[0].URL, nil
}
