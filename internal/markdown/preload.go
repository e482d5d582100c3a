package markdown

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	preloadPrefix = `window._preloads = JSON.parse("`
	preloadSuffix = `")`
)

// Article is the metadata and body extracted from a fetched article page.
type Article struct {
	Title        string
	Subtitle     string
	PostDate     string
	CanonicalURL string
	Author       string
	BodyHTML     string
}

type preloadPayload struct {
	Post struct {
		Title            string   `json:"title"`
		Subtitle         string   `json:"subtitle"`
		PostDate         string   `json:"post_date"`
		CanonicalURL     string   `json:"canonical_url"`
		BodyHTML         string   `json:"body_html"`
		PublishedBylines []byline `json:"publishedBylines"`
	} `json:"post"`
	Pub struct {
		Name string `json:"name"`
	} `json:"pub"`
}

// ExtractArticle pulls the preloaded article payload out of a fetched page.
// The payload script is located by its known prefix and the matching
// prefix/suffix literals are stripped before parsing, so the extraction
// survives changes elsewhere in the script text.
func ExtractArticle(pageHTML string) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse article page: %w", err)
	}

	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSuffix(strings.TrimSpace(s.Text()), ";")
		if strings.HasPrefix(text, preloadPrefix) && strings.HasSuffix(text, preloadSuffix) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return nil, errors.New("no preload script found in article page")
	}

	// The script wraps a JSON-escaped string literal; keep the surrounding
	// quotes and let the JSON decoder undo the escaping.
	quoted := script[len(preloadPrefix)-1 : len(script)-len(preloadSuffix)+1]
	var inner string
	if err := json.Unmarshal([]byte(quoted), &inner); err != nil {
		return nil, fmt.Errorf("decode preload string: %w", err)
	}

	var payload preloadPayload
	if err := json.Unmarshal([]byte(inner), &payload); err != nil {
		return nil, fmt.Errorf("parse preload payload: %w", err)
	}

	post := payload.Post
	if post.Title == "" {
		return nil, &MissingFieldError{Field: "title"}
	}
	if post.PostDate == "" {
		return nil, &MissingFieldError{Field: "post_date"}
	}
	if post.BodyHTML == "" {
		return nil, &MissingFieldError{Field: "body_html"}
	}

	author := payload.Pub.Name
	if names := bylineNames(post.PublishedBylines); len(names) > 0 {
		author = names[0]
	}
	if author == "" {
		author = "Unknown"
	}

	return &Article{
		Title:        post.Title,
		Subtitle:     post.Subtitle,
		PostDate:     post.PostDate,
		CanonicalURL: post.CanonicalURL,
		Author:       author,
		BodyHTML:     post.BodyHTML,
	}, nil
}
