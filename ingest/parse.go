package ingest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"

	"golang.org/x/net/html/charset"
)

var errNotItemDocument = errors.New("document is not a bare item")

// RawItem is a loosely-typed feed item. Fields match by local name only, so
// namespaced elements like content:encoded still bind. Raw keeps the item's
// inner XML as an opaque snapshot.
type RawItem struct {
	GUID        string `xml:"guid"`
	Link        string `xml:"link"`
	ID          string `xml:"id"`
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Content     string `xml:"encoded"`
	Author      string `xml:"author"`
	Company     string `xml:"company"`
	Location    string `xml:"location"`
	JobLocation string `xml:"job_location"`
	PubDate     string `xml:"pubDate"`
	Raw         string `xml:",innerxml"`
}

// parseStrategy extracts items from one known container shape. A strategy
// declines by returning no items or an error; the next one is then tried.
type parseStrategy struct {
	name    string
	extract func(body []byte) ([]RawItem, error)
}

var parseStrategies = []parseStrategy{
	{"rss-channel", parseRSSChannel},
	{"bare-channel", parseBareChannel},
	{"bare-item", parseBareItem},
}

// ParseItems converts a raw feed document into item records, trying each
// known dialect shape in priority order. An empty result with a nil error
// means the document parsed but contained no recognizable items.
func ParseItems(body []byte) ([]RawItem, error) {
	var firstErr error
	decoded := false
	for _, strategy := range parseStrategies {
		items, err := strategy.extract(body)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		decoded = true
		if len(items) > 0 {
			return items, nil
		}
	}

	// Every strategy declined. If at least one shape decoded cleanly the
	// document is simply empty, which is not an error.
	if !decoded {
		return nil, firstErr
	}
	return nil, nil
}

// parseRSSChannel handles the classic RSS 2.0 shape: rss > channel > item.
func parseRSSChannel(body []byte) ([]RawItem, error) {
	var doc struct {
		Channel struct {
			Items []RawItem `xml:"item"`
		} `xml:"channel"`
	}
	if err := parseXML(body, &doc); err != nil {
		return nil, err
	}
	return doc.Channel.Items, nil
}

// parseBareChannel handles documents whose root element directly holds the
// item list (a channel without an rss wrapper, or any flat item container).
func parseBareChannel(body []byte) ([]RawItem, error) {
	var doc struct {
		Items []RawItem `xml:"item"`
	}
	if err := parseXML(body, &doc); err != nil {
		return nil, err
	}
	return doc.Items, nil
}

// parseBareItem handles a document that is itself a single item element.
func parseBareItem(body []byte) ([]RawItem, error) {
	if !strings.HasPrefix(strings.TrimSpace(stripXMLDecl(body)), "<item") {
		return nil, errNotItemDocument
	}
	var item RawItem
	if err := parseXML(body, &item); err != nil {
		return nil, err
	}
	if item.Title == "" && item.GUID == "" && item.Link == "" && item.ID == "" {
		return nil, nil
	}
	return []RawItem{item}, nil
}

func stripXMLDecl(body []byte) string {
	s := strings.TrimSpace(string(body))
	if strings.HasPrefix(s, "<?xml") {
		if end := strings.Index(s, "?>"); end >= 0 {
			s = s[end+2:]
		}
	}
	return s
}

// parseXML decodes laxly: declared charsets are honored and bare HTML
// entities are tolerated, since real-world feeds contain both.
func parseXML(body []byte, doc interface{}) error {
	decoder := xml.NewDecoder(bytes.NewBuffer(body))
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Entity = xml.HTMLEntity
	return decoder.Decode(doc)
}
