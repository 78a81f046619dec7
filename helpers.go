package spacetraveling

import (
	"encoding/json"
	"path"
	"strings"
	"time"
)

// BuildURL joins a base URL with already escaped path segments. With no
// segments it returns the base with a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	base = strings.TrimRight(base, "/")
	p := path.Join(pathSegments...)
	if p == "" || p == "." || p == "/" {
		return base + "/"
	}
	return base + "/" + strings.TrimLeft(p, "/")
}

// WebsiteJsonLD returns a JSON-LD string for a WebSite schema using SiteConfig.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         BuildURL(cfg.URL),
		"description": cfg.Description,
		"inLanguage":  cfg.Locale,
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD returns a JSON-LD string for a BlogPosting schema.
func BlogPostingJsonLD(post PostDetail, cfg SiteConfig) string {
	postURL := BuildURL(cfg.URL, PostPath(post.UID))
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    post.Data.Title,
		"description": post.Data.Subtitle,
		"url":         postURL,
		"wordCount":   WordCount(post),
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if post.FirstPublicationDate != nil {
		data["datePublished"] = post.FirstPublicationDate.UTC().Format(time.RFC3339)
	}
	if post.Data.Banner.URL != "" {
		data["image"] = post.Data.Banner.URL
	}
	author := post.Data.Author
	if author == "" {
		author = cfg.Author
	}
	if author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  author,
		}
	}
	if cfg.Name != "" {
		data["publisher"] = map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
