package markdown

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// silentEmbedClasses are widgets that deliberately render to nothing:
// interactive or promotional surfaces with no archival value.
var silentEmbedClasses = []string{
	"poll-embed",
	"paywall",
	"subscribe-widget",
	"subscription-widget-embed",
	"community-chat-embed",
	"install-substack-app-embed",
}

// byline holds the author name list shared by several embed payloads.
type byline struct {
	Name string `json:"name"`
}

func bylineNames(lines []byline) []string {
	var names []string
	for _, b := range lines {
		if b.Name != "" {
			names = append(names, b.Name)
		}
	}
	return names
}

// joinByline renders an author list with the Oxford-comma rule, falling
// back to the publication name when no authors are known.
func joinByline(names []string, publication string) string {
	switch len(names) {
	case 0:
		return publication
	case 1:
		return "By " + names[0]
	case 2:
		return "By " + names[0] + " and " + names[1]
	default:
		return "By " + strings.Join(names[:len(names)-1], ", ") + ", and " + names[len(names)-1]
	}
}

// embedAttrs decodes the JSON-encoded data-attrs attribute carried by the
// embed container (or its first descendant that has one). The HTML parser
// has already entity-decoded the attribute value.
func embedAttrs(n *html.Node, out any) error {
	raw := findAttrDeep(n, "data-attrs")
	if raw == "" {
		return &MissingFieldError{Field: "data-attrs"}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parse data-attrs: %w", err)
	}
	return nil
}

// renderEmbed projects a classed widget container into its markdown
// stereotype. Classes outside the enumerated set are fatal for the article.
func (c *Converter) renderEmbed(n *html.Node) (string, error) {
	switch {
	case hasClass(n, "captioned-image-container"):
		return c.embedImage(n)
	case hasClass(n, "image-gallery-embed"):
		return c.embedGallery(n)
	case hasClass(n, "captioned-button-wrap"):
		return c.embedButton(n)
	case hasClass(n, "footnote"):
		return c.embedFootnote(n)
	case hasClass(n, "digest-post-embed"):
		return c.embedDigest(n)
	case hasClass(n, "embedded-post-wrap"):
		return c.embedPost(n)
	case hasClass(n, "calendly-embed"):
		return c.embedCalendly(n)
	case hasClass(n, "datawrapper-wrap"):
		return c.embedChart(n)
	case hasClass(n, "youtube2-wrap"):
		return c.embedYouTube(n)
	case hasClass(n, "spotify-wrap"):
		return c.embedSpotify(n)
	case hasClass(n, "tweet"):
		return c.embedTweet(n)
	case hasClass(n, "instagram"):
		return c.embedInstagram(n)
	case hasClass(n, "file-embed-button-wrap"):
		return c.embedFile(n)
	}
	for _, silent := range silentEmbedClasses {
		if hasClass(n, silent) {
			return "", nil
		}
	}
	return "", &UnsupportedEmbedError{Class: firstClass(n)}
}

func (c *Converter) embedImage(n *html.Node) (string, error) {
	var attrs struct {
		Src     string `json:"src"`
		Caption string `json:"caption"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	if attrs.Src == "" {
		return "", &MissingFieldError{Field: "src"}
	}
	if attrs.Caption != "" {
		return fmt.Sprintf("[Image](%s): %s", attrs.Src, attrs.Caption), nil
	}
	return fmt.Sprintf("[Image](%s)", attrs.Src), nil
}

func (c *Converter) embedGallery(n *html.Node) (string, error) {
	var attrs struct {
		Gallery struct {
			Images []struct {
				Src string `json:"src"`
			} `json:"images"`
			Caption string `json:"caption"`
		} `json:"gallery"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	var lines []string
	for i, img := range attrs.Gallery.Images {
		lines = append(lines, fmt.Sprintf("%d. [Image](%s)", i+1, img.Src))
	}
	if attrs.Gallery.Caption != "" {
		lines = append(lines, attrs.Gallery.Caption)
	}
	return strings.Join(lines, "\n"), nil
}

func (c *Converter) embedButton(n *html.Node) (string, error) {
	var attrs struct {
		URL     string `json:"url"`
		Text    string `json:"text"`
		Caption string `json:"caption"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	text := attrs.Text
	if text == "" {
		text = "Button"
	}
	link := fmt.Sprintf("[%s](%s)", text, attrs.URL)
	if attrs.Caption != "" {
		return "*" + attrs.Caption + "*\n" + link, nil
	}
	return link, nil
}

// embedFootnote renders a footnote definition from its two children: the
// marker anchor and the body container.
func (c *Converter) embedFootnote(n *html.Node) (string, error) {
	marker := findElement(n, "a")
	if marker == nil {
		return "", &MissingFieldError{Field: "footnote marker"}
	}
	content := findByClass(n, "footnote-content")
	if content == nil {
		return "", &MissingFieldError{Field: "footnote content"}
	}
	body, err := c.renderBlocks(content)
	if err != nil {
		return "", err
	}
	num := strings.TrimSpace(textContent(marker))
	body = strings.ReplaceAll(strings.TrimSpace(body), "\n", "\n    ")
	return "[^" + num + "]: " + body, nil
}

func (c *Converter) embedDigest(n *html.Node) (string, error) {
	var attrs struct {
		Title            string   `json:"title"`
		CanonicalURL     string   `json:"canonical_url"`
		CoverImage       string   `json:"cover_image"`
		Caption          string   `json:"caption"`
		PublicationName  string   `json:"publication_name"`
		PublishedBylines []byline `json:"publishedBylines"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	lines := []string{"---", "**" + attrs.Title + "**"}
	if who := joinByline(bylineNames(attrs.PublishedBylines), attrs.PublicationName); who != "" {
		lines = append(lines, who)
	}
	if attrs.CoverImage != "" {
		lines = append(lines, fmt.Sprintf("[Cover image](%s)", attrs.CoverImage))
	}
	if attrs.Caption != "" {
		lines = append(lines, attrs.Caption)
	}
	if attrs.CanonicalURL != "" {
		lines = append(lines, fmt.Sprintf("[Read more](%s)", attrs.CanonicalURL))
	}
	lines = append(lines, "---")
	return strings.Join(lines, "\n"), nil
}

func (c *Converter) embedPost(n *html.Node) (string, error) {
	var attrs struct {
		Title             string   `json:"title"`
		URL               string   `json:"url"`
		TruncatedBodyText string   `json:"truncated_body_text"`
		PublicationName   string   `json:"publication_name"`
		PublishedBylines  []byline `json:"publishedBylines"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	lines := []string{"---", "**" + attrs.Title + "**"}
	if who := joinByline(bylineNames(attrs.PublishedBylines), attrs.PublicationName); who != "" {
		lines = append(lines, who)
	}
	if attrs.TruncatedBodyText != "" {
		lines = append(lines, attrs.TruncatedBodyText)
	}
	if attrs.URL != "" {
		lines = append(lines, fmt.Sprintf("[Read the full post](%s)", attrs.URL))
	}
	lines = append(lines, "---")
	return strings.Join(lines, "\n"), nil
}

func (c *Converter) embedCalendly(n *html.Node) (string, error) {
	var attrs struct {
		URL string `json:"url"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	return fmt.Sprintf("[Book a meeting](%s)", attrs.URL), nil
}

func (c *Converter) embedChart(n *html.Node) (string, error) {
	var attrs struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		URL          string `json:"url"`
		ThumbnailURL string `json:"thumbnail_url"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	lines := []string{"**" + attrs.Title + "**"}
	if attrs.Description != "" {
		lines = append(lines, attrs.Description)
	}
	lines = append(lines, fmt.Sprintf("[Interactive chart](%s)", attrs.URL))
	if attrs.ThumbnailURL != "" {
		lines = append(lines, fmt.Sprintf("[Static image](%s)", attrs.ThumbnailURL))
	}
	return strings.Join(lines, "\n"), nil
}

func (c *Converter) embedYouTube(n *html.Node) (string, error) {
	var attrs struct {
		VideoID string `json:"videoId"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	if attrs.VideoID == "" {
		return "", &MissingFieldError{Field: "videoId"}
	}
	return fmt.Sprintf("[YouTube video](https://www.youtube.com/watch?v=%s)", attrs.VideoID), nil
}

func (c *Converter) embedSpotify(n *html.Node) (string, error) {
	var attrs struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	if attrs.Title != "" {
		return fmt.Sprintf("[Podcast episode](%s): %s", attrs.URL, attrs.Title), nil
	}
	return fmt.Sprintf("[Podcast episode](%s)", attrs.URL), nil
}

func (c *Converter) embedTweet(n *html.Node) (string, error) {
	var attrs struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	if attrs.Name != "" {
		return fmt.Sprintf("[Tweet by @%s](%s)", attrs.Name, attrs.URL), nil
	}
	return fmt.Sprintf("[Tweet](%s)", attrs.URL), nil
}

func (c *Converter) embedInstagram(n *html.Node) (string, error) {
	var attrs struct {
		URL string `json:"url"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	return fmt.Sprintf("[Instagram post](%s)", attrs.URL), nil
}

func (c *Converter) embedFile(n *html.Node) (string, error) {
	var attrs struct {
		URL  string `json:"url"`
		Name string `json:"name"`
	}
	if err := embedAttrs(n, &attrs); err != nil {
		return "", err
	}
	name := attrs.Name
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("[Download %s](%s)", name, attrs.URL), nil
}
