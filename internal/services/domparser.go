package services

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"trailblaze-events-scraper/internal/models"
)

// DOMParser extracts raw event records from calendar HTML using
// deterministic DOM heuristics. It is the primary extraction path; the
// AI extractor only runs for chunks where this parser yields nothing.
type DOMParser struct {
	selector string
	source   string
	combiner *EventCombiner
}

// NewDOMParser creates a DOM parser for the given container selector and
// event source.
func NewDOMParser(selector, source string) *DOMParser {
	if selector == "" {
		selector = DefaultChunkConfig().Selector
	}
	if source == "" {
		source = models.SourceAERC
	}
	return &DOMParser{
		selector: selector,
		source:   source,
		combiner: NewEventCombiner(),
	}
}

// ParseHTML finds all event containers in the document, runs every field
// extractor per container, and returns the combined raw event records.
// A row that fails extraction is logged and skipped, never fatal; only
// blank input or a completely unparseable document fail the call.
func (p *DOMParser) ParseHTML(html string) ([]models.RawEvent, error) {
	if strings.TrimSpace(html) == "" {
		return nil, &EmptyInputError{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML document: %w", err)
	}

	var rows []models.RawEvent
	doc.Find(p.selector).Each(func(i int, sel *goquery.Selection) {
		event, err := p.extractRow(sel)
		if err != nil {
			log.Printf("DOM parser: skipping row %d: %v", i, err)
			return
		}
		rows = append(rows, event)
	})

	return p.combiner.Combine(rows), nil
}

// extractRow runs all field extractors over one event fragment. Panics
// from malformed fragments are converted into a skippable error.
func (p *DOMParser) extractRow(sel *goquery.Selection) (event models.RawEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			event = nil
			err = fmt.Errorf("row extraction panicked: %v", r)
		}
	}()

	name := ExtractName(sel)
	region := ExtractRegion(sel)
	dateStart, dateEnd := ExtractDates(sel)
	location := ExtractLocation(sel, region)
	distances := ExtractDistances(sel, name)

	// A row none of the heuristics could read is not an event. Emitting
	// it would both store junk and mask the chunk from the AI fallback.
	if name == models.UnknownEventName && dateStart == models.DefaultFutureDate && len(distances) == 0 {
		return nil, fmt.Errorf("no extractable event signal in row")
	}
	manager, email, phone := ExtractRideManager(sel)
	judges := ExtractJudges(sel)
	mapLink, flyerURL, websiteURL := ExtractLinks(sel)
	coords := ExtractCoordinates(mapLink, location, name)

	event = models.RawEvent{
		models.RawKeySource:    p.source,
		models.RawKeyName:      name,
		models.RawKeyDateStart: dateStart,
		models.RawKeyLocation:  location,
	}
	if rideID := ExtractRideID(sel); rideID != "" {
		event[models.RawKeyRideID] = rideID
	}
	if dateEnd != "" {
		event[models.RawKeyDateEnd] = dateEnd
	}
	if region != models.RegionUnknown {
		event[models.RawKeyRegion] = region
	}
	if len(distances) > 0 {
		event[models.RawKeyDistances] = distances
	}
	if manager != "" {
		event[models.RawKeyRideManager] = manager
	}
	if email != "" {
		event[models.RawKeyManagerEmail] = email
	}
	if phone != "" {
		event[models.RawKeyManagerPhone] = phone
	}
	if len(judges) > 0 {
		event[models.RawKeyJudges] = judges
	}
	if mapLink != "" {
		event[models.RawKeyMapLink] = mapLink
	}
	if flyerURL != "" {
		event[models.RawKeyFlyer] = flyerURL
	}
	if websiteURL != "" {
		event[models.RawKeyWebsite] = websiteURL
	}
	if coords != nil {
		event[models.RawKeyLatitude] = coords.Latitude
		event[models.RawKeyLongitude] = coords.Longitude
	}
	if DetectCancellation(sel.Text()) {
		event[models.RawKeyIsCanceled] = true
	}
	if DetectIntroRide(sel, distances) {
		event[models.RawKeyHasIntroRide] = true
	}

	p.deriveMultiDaySignals(event, name, dateStart, dateEnd, CountRepeatedDistanceDays(sel))

	return event, nil
}

// deriveMultiDaySignals sets per-row multi-day/pioneer hints from name
// keywords, explicit day-count patterns, and the row's own date span.
// These stand for rows that never join an identity group; grouped rows
// get authoritative values from the combiner.
func (p *DOMParser) deriveMultiDaySignals(event models.RawEvent, name, dateStart, dateEnd string, repeatedDays int) {
	days := 1

	if dateEnd != "" && dateEnd != dateStart {
		if span := models.InclusiveDayCount(dateStart, dateEnd); span > days {
			days = span
		}
	}
	if m := ridePioneerDayRe.FindStringSubmatch(name); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > days {
			days = n
		}
	}

	// Repeated identical distances ("50/50/50") mean one distance per
	// day. Only consulted here: rows carrying an identity key get their
	// day count from identity grouping instead.
	if days == 1 && !event.Has(models.RawKeyRideID) && repeatedDays > days {
		days = repeatedDays
	}

	pioneerNamed := strings.Contains(strings.ToLower(name), "pioneer")

	if days > 1 {
		event[models.RawKeyRideDays] = days
		event[models.RawKeyIsMultiDay] = true
	}
	if days >= 3 {
		event[models.RawKeyIsPioneer] = true
	}
	if pioneerNamed && days < 3 {
		// A "pioneer" name without a provable 3-day span is only a hint;
		// record the day floor so the combiner can still promote it.
		event[models.RawKeyIsMultiDay] = true
		if event.Int(models.RawKeyRideDays) < 2 {
			event[models.RawKeyRideDays] = 2
		}
	}
}
