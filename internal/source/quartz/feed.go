package quartz

import (
	"encoding/xml"
	"fmt"
)

type feedDoc struct {
	Items   []rssItem   `xml:"channel>item"`
	Entries []atomEntry `xml:"entry"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

type atomEntry struct {
	Title     string     `xml:"title"`
	Links     []atomLink `xml:"link"`
	Published string     `xml:"published"`
	Updated   string     `xml:"updated"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
}

// ParseFeed reads an RSS 2.0 or Atom document.
func ParseFeed(body []byte) ([]FeedItem, error) {
	var doc feedDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	items := make([]FeedItem, 0, len(doc.Items)+len(doc.Entries))
	for _, it := range doc.Items {
		items = append(items, FeedItem{Title: it.Title, Link: it.Link, Published: it.PubDate})
	}
	for _, e := range doc.Entries {
		published := e.Published
		if published == "" {
			published = e.Updated
		}
		items = append(items, FeedItem{Title: e.Title, Link: e.alternate(), Published: published})
	}
	return items, nil
}

func (e atomEntry) alternate() string {
	for _, l := range e.Links {
		if l.Rel == "" || l.Rel == "alternate" {
			return l.Href
		}
	}
	if len(e.Links) > 0 {
		return e.Links[0].Href
	}
	return ""
}
