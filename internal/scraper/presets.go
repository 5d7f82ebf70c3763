package scraper

// Selector presets for the sites the desk follows. The generic "html"
// class relies on readability and og:image.
var (
	kolesaSelectors = Selectors{
		Entry:      "a.post-list-item",
		Title:      "span.post-name",
		Date:       "span.post-meta-item.pull-right",
		Body:       "div.post-content",
		Images:     "div.post-gallery img",
		Background: "span.post-image",
	}
	autonewsSelectors = Selectors{
		Entry:  "div.item-big__inner",
		Link:   "a.item-big__link",
		Title:  "span.item-big__title",
		Date:   "span.item-big__date",
		Body:   "div.article__text[itemprop='articleBody']",
		Images: "div.article__text[itemprop='articleBody'] img",
	}
	dromSelectors = Selectors{
		Entry:     "div.b-info-block",
		Link:      "a.b-info-block__cont",
		Title:     "div.b-info-block__title",
		Date:      "div.b-info-block__text_type_news-date",
		Body:      "#news_text",
		Images:    "div.news_img > a",
		ImageAttr: "href",
	}
	genericSelectors = Selectors{
		Entry: "article",
		Link:  "a[href]",
		Title: "h1, h2, h3",
		Date:  "time",
	}
)

func preset(selectors Selectors) Factory {
	return func(listingURL string, deps Deps) Connector {
		return NewHTMLConnector(listingURL, selectors, deps)
	}
}

var builtinClasses = map[string]Factory{
	"kolesa":              preset(kolesaSelectors),
	"kolesanewsscraper":   preset(kolesaSelectors),
	"autonews":            preset(autonewsSelectors),
	"autonewsnewsscraper": preset(autonewsSelectors),
	"drom":                preset(dromSelectors),
	"dromnewsscraper":     preset(dromSelectors),
	"html":                preset(genericSelectors),
}
