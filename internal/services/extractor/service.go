package extractor

import (
	"errors"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/allyhumai/bridge/internal/common"
	"github.com/allyhumai/bridge/internal/models"
)

// ErrNoProfile is returned when the document carries no recognizable
// profile data, most importantly no candidate name.
var ErrNoProfile = errors.New("no profile data in document")

const topCardSelector = "section[data-member-id]"

var listItemSelector = strings.Join([]string{
	"li.artdeco-list__item",
	"li.pvs-list__item",
	"li.pvs-list__paged-list-item",
}, ", ")

// Service converts raw profile page HTML into a structured candidate
// record. Extraction is best effort: missing sections produce empty
// fields, never an error. Only a missing name fails the whole document.
type Service struct {
	logger    arbor.ILogger
	converter *md.Converter
}

// NewService creates a profile extractor service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger:    logger,
		converter: md.NewConverter("", true, nil),
	}
}

// Extract parses profile page HTML and builds a candidate record.
func (s *Service) Extract(html string) (*models.CandidateRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, errors.Join(ErrNoProfile, err)
	}

	candidate := &models.CandidateRecord{}

	ogName, ogHeadline := parseOgTitle(doc)

	candidate.Name = firstNonEmpty(
		ogName,
		selectTopCardText(doc, "h1 span[aria-hidden='true']", "h1"),
		selectText(doc, "main [role='main'] h1"),
	)
	if candidate.Name == "" {
		return nil, ErrNoProfile
	}
	candidate.LastName = deriveLastName(candidate.Name)

	candidate.Role = firstNonEmpty(
		ogHeadline,
		selectTopCardText(doc,
			"div[data-test-id='top-card__headline'] span[aria-hidden='true']",
			"div[data-test-id='top-card__headline']"),
		selectText(doc, "div.text-body-medium.break-words"),
	)

	candidate.Organization = firstNonEmpty(
		selectTopCardText(doc,
			"div[data-test-id='current-company'] span[aria-hidden='true']",
			"div[data-test-id='current-company']",
			"li[aria-label*='current company'] span[aria-hidden='true']"),
		selectText(doc, "div.pv-text-details__right-panel a"),
	)

	candidate.Location = firstNonEmpty(
		selectTopCardText(doc,
			"span[data-test-id='top-card__location']",
			"li[aria-label*='location'] span[aria-hidden='true']"),
		selectText(doc, "span[data-anonymize='person-address']"),
	)
	candidate.PlaceOfResidency = candidate.Location

	candidate.Phone = selectTopCardAttr(doc, "a[href^='tel:']", "href", "tel:")
	candidate.Email = selectTopCardAttr(doc, "a[href^='mailto:']", "href", "mailto:")

	if ogURL, exists := doc.Find("meta[property='og:url']").Attr("content"); exists {
		candidate.ProfileURL = common.NormalizeProfileURL(ogURL)
	}
	if candidate.ProfileURL == "" {
		if href, exists := doc.Find("a[href^='https://www.linkedin.com/in/']").First().Attr("href"); exists {
			candidate.ProfileURL = common.NormalizeProfileURL(href)
		}
	}

	candidate.About = s.extractAbout(doc)
	candidate.WorkExperience = extractWorkExperience(doc)
	candidate.Education = extractEducation(doc)
	candidate.Skills = extractSkills(doc)
	candidate.LevelOfEnglish = extractEnglishLevel(doc)

	s.logger.Debug().
		Str("name", candidate.Name).
		Str("profile_url", candidate.ProfileURL).
		Int("experience", len(candidate.WorkExperience)).
		Int("education", len(candidate.Education)).
		Int("skills", len(candidate.Skills)).
		Msg("Profile extracted")

	return candidate, nil
}

// parseOgTitle splits the og:title meta ("Name - Headline | LinkedIn")
// into name and headline parts.
func parseOgTitle(doc *goquery.Document) (name, headline string) {
	title, exists := doc.Find("meta[property='og:title']").Attr("content")
	if !exists {
		return "", ""
	}
	title = regexp.MustCompile(`(?i)\| LinkedIn$`).ReplaceAllString(title, "")
	parts := strings.Split(title, " - ")
	cleaned := parts[:0]
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			cleaned = append(cleaned, p)
		}
	}
	if len(cleaned) == 0 {
		return "", ""
	}
	name = cleaned[0]
	if len(cleaned) > 1 {
		headline = strings.Join(cleaned[1:], " - ")
	}
	return name, headline
}

// sectionFromAnchor finds the profile section that contains the given
// anchor id. Profile sections carry an invisible anchor div whose id
// names the section.
func sectionFromAnchor(doc *goquery.Document, anchorID string) *goquery.Selection {
	anchor := doc.Find("#" + anchorID).First()
	if anchor.Length() == 0 {
		return nil
	}
	section := anchor.Closest("section")
	if section.Length() == 0 {
		return nil
	}
	return section
}

func (s *Service) extractAbout(doc *goquery.Document) string {
	section := sectionFromAnchor(doc, "about")
	if section == nil {
		return ""
	}
	body := section.Find(".inline-show-more-text, div.display-flex span[aria-hidden='true']").First()
	if body.Length() == 0 {
		return ""
	}
	markdown := s.converter.Convert(body)
	return strings.TrimSpace(markdown)
}

func extractWorkExperience(doc *goquery.Document) []models.Experience {
	section := sectionFromAnchor(doc, "experience")
	if section == nil {
		return nil
	}

	var experiences []models.Experience
	section.Find(listItemSelector).Each(func(i int, item *goquery.Selection) {
		title := selectTextWithin(item, "div.t-bold span[aria-hidden='true']", "div.t-bold")
		company := selectTextWithin(item, "span.t-14.t-normal span[aria-hidden='true']", "span.t-14.t-normal")
		if title == "" && company == "" {
			return
		}

		dateText, location := splitExperienceMeta(item)
		from, to := parseDateRange(dateText)

		experiences = append(experiences, models.Experience{
			Title:       title,
			Company:     company,
			DateFrom:    from,
			DateTo:      to,
			Location:    location,
			Description: selectTextWithin(item, ".inline-show-more-text--is-collapsed", ".inline-show-more-text--is-collapsed-with-line-clamp"),
		})
	})
	return experiences
}

// splitExperienceMeta classifies an item's muted meta lines into a date
// range and a location. Dates carry digits or a present-tense marker;
// locations carry neither digits nor separators.
func splitExperienceMeta(item *goquery.Selection) (dateText, location string) {
	datePattern := regexp.MustCompile(`(?i)\d|presente?|actualidad`)
	item.Find("span.t-14.t-normal.t-black--light span[aria-hidden='true'], span.t-14.t-normal.t-black--light").Each(func(i int, meta *goquery.Selection) {
		text := strings.TrimSpace(meta.Text())
		if text == "" {
			return
		}
		switch {
		case dateText == "" && datePattern.MatchString(text):
			dateText = text
		case location == "" && !strings.Contains(text, "·") && !regexp.MustCompile(`\d`).MatchString(text):
			location = text
		}
	})
	return dateText, location
}

func extractEducation(doc *goquery.Document) []models.Education {
	section := sectionFromAnchor(doc, "education")
	if section == nil {
		return nil
	}

	var entries []models.Education
	section.Find(listItemSelector).Each(func(i int, item *goquery.Selection) {
		institution := selectTextWithin(item, "div.t-bold span[aria-hidden='true']", "div.t-bold")
		if institution == "" {
			return
		}

		dateText := selectTextWithin(item,
			"span.t-14.t-normal.t-black--light span[aria-hidden='true']",
			"span.t-14.t-normal.t-black--light")
		from, to := parseDateRange(dateText)

		entries = append(entries, models.Education{
			Institution: institution,
			Degree:      selectTextWithin(item, "span.t-14.t-normal span[aria-hidden='true']", "span.t-14.t-normal"),
			DateFrom:    from,
			DateTo:      to,
		})
	})
	return entries
}

func extractSkills(doc *goquery.Document) []string {
	section := sectionFromAnchor(doc, "skills")
	if section == nil {
		return nil
	}

	seen := make(map[string]bool)
	var skills []string
	section.Find(listItemSelector).Each(func(i int, item *goquery.Selection) {
		skill := selectTextWithin(item, "div.t-bold span[aria-hidden='true']", "div.t-bold")
		if skill == "" || seen[skill] {
			return
		}
		seen[skill] = true
		skills = append(skills, skill)
	})
	return skills
}

func extractEnglishLevel(doc *goquery.Document) string {
	section := sectionFromAnchor(doc, "languages")
	if section == nil {
		return ""
	}

	englishPattern := regexp.MustCompile(`(?i)english|inglés`)
	level := ""
	section.Find(listItemSelector).EachWithBreak(func(i int, item *goquery.Selection) bool {
		language := selectTextWithin(item, "div.t-bold span[aria-hidden='true']", "div.t-bold")
		if language == "" || !englishPattern.MatchString(language) {
			return true
		}
		level = selectTextWithin(item,
			"span.t-14.t-normal.t-black--light span[aria-hidden='true']",
			"span.t-14.t-normal.t-black--light")
		if level == "" {
			level = language
		}
		return false
	})
	return level
}

// parseDateRange splits a raw date line ("ene. 2020 - actualidad · 4
// años") into its from and to halves.
func parseDateRange(raw string) (from, to string) {
	if raw == "" {
		return "", ""
	}
	rangePart := strings.TrimSpace(strings.SplitN(raw, "·", 2)[0])
	if rangePart == "" {
		return raw, ""
	}
	parts := strings.SplitN(rangePart, " - ", 2)
	from = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		to = strings.TrimSpace(parts[1])
	}
	return from, to
}

func deriveLastName(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[1:], " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// selectText returns trimmed text from the first selector that matches.
func selectText(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func selectTextWithin(selection *goquery.Selection, selectors ...string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(selection.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// selectTopCardText scopes selectors to the profile top card when one
// exists, falling back to the whole document otherwise.
func selectTopCardText(doc *goquery.Document, selectors ...string) string {
	topCard := doc.Find(topCardSelector).First()
	if topCard.Length() == 0 {
		return selectText(doc, selectors...)
	}
	return selectTextWithin(topCard, selectors...)
}

func selectTopCardAttr(doc *goquery.Document, selector, attr, stripPrefix string) string {
	scope := doc.Find(topCardSelector).First()
	if scope.Length() == 0 {
		scope = doc.Selection
	}
	value, exists := scope.Find(selector).First().Attr(attr)
	if !exists {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(value, stripPrefix))
}
