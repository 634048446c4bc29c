package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"trailblaze-events-scraper/internal/models"
)

// Field extractors. Each one is a pure function over a single event
// fragment (one calendar row, possibly a small tree of nested tables)
// and pulls out exactly one semantic field. Extractors never fail; they
// return their zero value or a documented sentinel when nothing matches.

var (
	cancelMarkerRe = regexp.MustCompile(`(?i)^[\s*~!x-]*\bcancell?ed\b[\s*:~!-]*`)

	monthNameRangeRe  = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(\d{1,2})\s*[-–]\s*(?:(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+)?(\d{1,2}),?\s+(\d{4})`)
	monthNameSingleRe = regexp.MustCompile(`(?i)\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+(\d{1,2}),?\s+(\d{4})`)
	slashRangeRe      = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\s*[-–]\s*(\d{1,2})/(\d{1,2})/(\d{4})`)
	slashSingleRe     = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)

	distanceTokenRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	distanceSplitRe = regexp.MustCompile(`(?i)\s*(?:,|/|&|\band\b)\s*`)

	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)

	managerPrefixRe = regexp.MustCompile(`(?i)\b(?:mgr|manager|contact)\s*:\s*([A-Za-z][A-Za-z .'-]{2,60})`)

	judgeRoleRe = regexp.MustCompile(`(?i)\b(Head Control Judge|Control Judge|Vet Judge|Head Vet|Treatment Vet|Technical Delegate|Steward)\s*:\s*([A-Za-z][A-Za-z .,'&-]{2,120})`)
	nameSplitRe = regexp.MustCompile(`(?i)\s*(?:,|\band\b|&)\s*`)

	regionLabelRe    = regexp.MustCompile(`(?i)\bregion\s*:?\s*(CT|MT|MW|NE|NW|PS|SE|SW|W)\b`)
	regionSuffixRe   = regexp.MustCompile(`(?i)\b(CT|MT|MW|NE|NW|PS|SE|SW|W)\s+region\b`)
	ridePioneerDayRe = regexp.MustCompile(`(?i)\b(\d+)[\s-]day\b`)

	latLngQueryRe = regexp.MustCompile(`[?&](?:ll|q|sll|center|destination)=(-?\d{1,3}\.\d+)\s*,\s*(-?\d{1,3}\.\d+)`)
	latLngPathRe  = regexp.MustCompile(`@(-?\d{1,3}\.\d+),(-?\d{1,3}\.\d+)`)

	introSuffixRe = regexp.MustCompile(`(?i)\s*[-–(]*\s*has\s+intro\s+ride!?\s*[)]*\s*$`)
)

// cancellationKeywords flag an event as canceled/postponed when any of
// them appears in the fragment's visible text.
var cancellationKeywords = []string{
	"cancelled", "canceled", "cancellation", "postponed", "rescheduled", "called off",
}

var introRidePhrases = []string{
	"intro ride", "introductory ride", "has intro", "intro distance",
}

var monthIndex = map[string]int{
	"jan": 1, "feb": 2, "mar": 3, "apr": 4, "may": 5, "jun": 6,
	"jul": 7, "aug": 8, "sep": 9, "oct": 10, "nov": 11, "dec": 12,
}

var regionFullNames = map[string]string{
	"central":           models.RegionCentral,
	"mountain":          models.RegionMountain,
	"midwest":           models.RegionMidwest,
	"northeast":         models.RegionNortheast,
	"northwest":         models.RegionNorthwest,
	"pacific southwest": models.RegionPacificSouth,
	"pacific south":     models.RegionPacificSouth,
	"southeast":         models.RegionSoutheast,
	"southwest":         models.RegionSouthwest,
	"west":              models.RegionWest,
}

var canadianProvinces = map[string]bool{
	"AB": true, "BC": true, "MB": true, "NB": true, "NL": true,
	"NS": true, "NT": true, "NU": true, "ON": true, "PE": true,
	"QC": true, "SK": true, "YT": true,
}

var canadianProvinceNames = map[string]string{
	"alberta": "AB", "british columbia": "BC", "manitoba": "MB",
	"new brunswick": "NB", "newfoundland": "NL", "nova scotia": "NS",
	"ontario": "ON", "prince edward island": "PE", "quebec": "QC",
	"saskatchewan": "SK", "yukon": "YT",
}

var usStates = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true,
	"CO": true, "CT": true, "DE": true, "FL": true, "GA": true,
	"HI": true, "ID": true, "IL": true, "IN": true, "IA": true,
	"KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true,
	"MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true,
	"OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true,
	"VA": true, "WA": true, "WV": true, "WI": true, "WY": true,
}

// canonicalProvinceRe matches a province code anchored by a delimiter or
// the end of the string, so "MB" in "Stead MB" matches but "MB" inside a
// word does not.
var canadianProvinceRe = regexp.MustCompile(`(?:^|[\s,])(AB|BC|MB|NB|NL|NS|NT|NU|ON|PE|QC|SK|YT)(?:[\s,.]|$)`)

// venueCoordinates is a small seed table of well-known ride venues,
// matched by substring against the location text and then the ride name.
// Optional seed data only; a missing entry simply leaves coordinates
// unset.
var venueCoordinates = map[string]models.Coordinates{
	"moab":          {Latitude: 38.5733, Longitude: -109.5498},
	"biltmore":      {Latitude: 35.5408, Longitude: -82.5515},
	"fort howes":    {Latitude: 45.3483, Longitude: -106.1920},
	"city of rocks": {Latitude: 42.0786, Longitude: -113.7047},
	"owyhee":        {Latitude: 43.2500, Longitude: -116.7500},
	"tevis":         {Latitude: 39.1911, Longitude: -120.2358},
	"old dominion":  {Latitude: 38.9901, Longitude: -78.3400},
	"big horn":      {Latitude: 44.3800, Longitude: -107.1800},
}

// locationExceptions handles a handful of recurring venue strings that
// defeat the layered heuristic (no delimiter between venue and place).
var locationExceptions = map[string]models.Location{
	"broxton bridge plantation": {City: "Ehrhardt", State: "SC", Country: "USA"},
	"oreana":                    {City: "Oreana", State: "ID", Country: "USA"},
}

// ExtractName pulls the ride name from a fragment, trying a dedicated
// name element, then header text, then the first table header. A leading
// cancellation marker is stripped. Falls back to the "Unknown" sentinel.
func ExtractName(sel *goquery.Selection) string {
	candidates := []func() string{
		func() string { return strings.TrimSpace(sel.Find("span.rideName").First().Text()) },
		func() string { return strings.TrimSpace(sel.Find("b").First().Text()) },
		func() string { return strings.TrimSpace(sel.Find("th").First().Text()) },
	}

	for _, candidate := range candidates {
		if text := candidate(); text != "" {
			return strings.TrimSpace(cancelMarkerRe.ReplaceAllString(text, ""))
		}
	}
	return models.UnknownEventName
}

// ExtractRideID reads the source's ride identity key from the name
// element's tag attribute, falling back to an id-like attribute on the
// container. Returns "" when the row carries no identity; such rows are
// treated as unique and never merged with siblings.
func ExtractRideID(sel *goquery.Selection) string {
	if tag, ok := sel.Find("span.rideName").First().Attr("tag"); ok && strings.TrimSpace(tag) != "" {
		return strings.TrimSpace(tag)
	}
	if id, ok := sel.Attr("tag"); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	if id, ok := sel.Attr("id"); ok {
		id = strings.TrimSpace(id)
		if _, err := strconv.Atoi(id); err == nil {
			return id
		}
	}
	return ""
}

// ExtractDates finds the event's start and end dates, normalized to
// YYYY-MM-DD. A dedicated date cell is tried first; otherwise the whole
// fragment text is scanned with the pattern set in priority order
// (month-name range, month-name single, slash range, slash single).
// When nothing matches, the start date falls back to the far-future
// sentinel rather than failing the row. End is "" for single-day rows.
func ExtractDates(sel *goquery.Selection) (string, string) {
	if cell := strings.TrimSpace(sel.Find("td.rideDate").First().Text()); cell != "" {
		if start, end, ok := parseDateText(cell); ok {
			return start, end
		}
	}

	if start, end, ok := parseDateText(sel.Text()); ok {
		return start, end
	}

	return models.DefaultFutureDate, ""
}

// parseDateText matches the four supported literal date shapes against a
// text blob, in priority order.
func parseDateText(text string) (string, string, bool) {
	if m := monthNameRangeRe.FindStringSubmatch(text); m != nil {
		year := m[5]
		startMonth := m[1]
		endMonth := m[3]
		if endMonth == "" {
			endMonth = startMonth
		}
		start := formatMonthNameDate(startMonth, m[2], year)
		end := formatMonthNameDate(endMonth, m[4], year)
		if start != "" && end != "" {
			return start, end, true
		}
	}

	if m := monthNameSingleRe.FindStringSubmatch(text); m != nil {
		if date := formatMonthNameDate(m[1], m[2], m[3]); date != "" {
			return date, "", true
		}
	}

	if m := slashRangeRe.FindStringSubmatch(text); m != nil {
		start := formatSlashDate(m[1], m[2], m[3])
		end := formatSlashDate(m[4], m[5], m[6])
		if start != "" && end != "" {
			return start, end, true
		}
	}

	if m := slashSingleRe.FindStringSubmatch(text); m != nil {
		if date := formatSlashDate(m[1], m[2], m[3]); date != "" {
			return date, "", true
		}
	}

	return "", "", false
}

func formatMonthNameDate(month, day, year string) string {
	idx, ok := monthIndex[strings.ToLower(month)[:3]]
	if !ok {
		return ""
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return ""
	}
	return fmt.Sprintf("%s-%02d-%02d", year, idx, d)
}

func formatSlashDate(month, day, year string) string {
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return ""
	}
	d, err := strconv.Atoi(day)
	if err != nil || d < 1 || d > 31 {
		return ""
	}
	return fmt.Sprintf("%s-%02d-%02d", year, m, d)
}

// ExtractLocation reads the event's location string. Primary signal is
// the second data cell of the second structural row; fallbacks are a
// "Location"-labeled detail cell and finally a label synthesized from
// the region code. Decorative suffixes ("Has Intro Ride!") are stripped,
// keeping whichever side of the split is non-empty.
func ExtractLocation(sel *goquery.Selection, region string) string {
	location := strings.TrimSpace(sel.Find("tr").Eq(1).Find("td").Eq(1).Text())
	if location == "" {
		location = findDetailValue(sel, "location")
	}
	if location == "" {
		if region != "" && region != models.RegionUnknown {
			return region + " region ride"
		}
		return ""
	}

	if stripped := strings.TrimSpace(introSuffixRe.ReplaceAllString(location, "")); stripped != "" {
		return stripped
	}
	return location
}

// ExtractDistances pulls ride distances from the dedicated distance
// cell, splitting on commas, slashes, ampersands, and "and". Each token
// must carry a numeric value inside [10, 200] miles; that range rejects
// false positives like years and phone-number fragments. If the cell
// yields nothing, the ride name and then the full fragment text are
// re-scanned with the same filter. Duplicates (by numeric value) are
// dropped, first-seen order preserved.
func ExtractDistances(sel *goquery.Selection, name string) []string {
	if distances := parseDistanceText(sel.Find("td.rideDistances").First().Text()); len(distances) > 0 {
		return distances
	}
	if distances := parseDistanceText(findDetailValue(sel, "distances", "distance")); len(distances) > 0 {
		return distances
	}
	if distances := parseDistanceText(name); len(distances) > 0 {
		return distances
	}
	return parseDistanceText(sel.Text())
}

// parseDistanceText splits a text blob into distance tokens and keeps
// the plausible ones.
func parseDistanceText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var distances []string
	seen := make(map[string]bool)

	for _, token := range distanceSplitRe.Split(text, -1) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		m := distanceTokenRe.FindString(token)
		if m == "" {
			continue
		}
		value, err := strconv.ParseFloat(m, 64)
		if err != nil || value < 10 || value > 200 {
			continue
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		distances = append(distances, token)
	}

	return distances
}

// CountRepeatedDistanceDays reads the raw distance cell, before any
// deduplication, and counts the most-repeated plausible distance token.
// Some rows encode a multi-day ride by listing one distance per day
// ("50/50/50" means three days). Returns 0 when no token repeats.
func CountRepeatedDistanceDays(sel *goquery.Selection) int {
	text := sel.Find("td.rideDistances").First().Text()
	if strings.TrimSpace(text) == "" {
		text = findDetailValue(sel, "distances", "distance")
	}

	counts := make(map[string]int)
	max := 0
	for _, token := range distanceSplitRe.Split(text, -1) {
		m := distanceTokenRe.FindString(strings.TrimSpace(token))
		if m == "" {
			continue
		}
		value, err := strconv.ParseFloat(m, 64)
		if err != nil || value < 10 || value > 200 {
			continue
		}
		counts[m]++
		if counts[m] > max {
			max = counts[m]
		}
	}
	if max < 2 {
		return 0
	}
	return max
}

// ExtractRideManager finds the ride manager's name, email, and phone.
// Email and phone are scanned independently from the full fragment text
// when they do not accompany the manager cell.
func ExtractRideManager(sel *goquery.Selection) (name, email, phone string) {
	name = strings.TrimSpace(sel.Find("td.rideManager").First().Text())
	if name == "" {
		name = findDetailValue(sel, "ride manager", "manager", "contact", "rm")
	}
	if name == "" {
		if m := managerPrefixRe.FindStringSubmatch(sel.Text()); m != nil {
			name = strings.TrimSpace(m[1])
		}
	}

	// The manager cell often embeds contact info alongside the name.
	if name != "" {
		if m := emailRe.FindString(name); m != "" {
			email = m
			name = strings.TrimSpace(strings.Replace(name, m, "", 1))
		}
		if m := phoneRe.FindString(name); m != "" {
			phone = m
			name = strings.TrimSpace(strings.Replace(name, m, "", 1))
		}
		name = strings.Trim(name, " ,;-()")
	}

	text := sel.Text()
	if email == "" {
		email = emailRe.FindString(text)
	}
	if phone == "" {
		phone = phoneRe.FindString(text)
	}

	return name, email, phone
}

// ExtractJudges collects control judges and similar officials as
// "<role>: <name>" strings. Detail-table rows are scanned for role
// labels first, then free text is matched against role patterns.
// Comma/"and"-joined name lists are split into individual records and
// deduplicated by name.
func ExtractJudges(sel *goquery.Selection) []string {
	roleLabels := []string{
		"head control judge", "control judge", "vet judge",
		"head vet", "treatment vet", "technical delegate", "steward",
	}

	var judges []string
	seen := make(map[string]bool)

	add := func(role, names string) {
		for _, name := range nameSplitRe.Split(names, -1) {
			name = strings.Trim(name, " .,;-")
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true
			judges = append(judges, role+": "+name)
		}
	}

	sel.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.ToLower(strings.Trim(strings.TrimSpace(cells.First().Text()), ":"))
		for _, roleLabel := range roleLabels {
			if label == roleLabel {
				add(titleCase(roleLabel), strings.TrimSpace(cells.Last().Text()))
				return
			}
		}
	})

	for _, m := range judgeRoleRe.FindAllStringSubmatch(sel.Text(), -1) {
		add(titleCase(m[1]), m[2])
	}

	return judges
}

// ExtractLinks classifies every anchor in the fragment into at most one
// of map, flyer, or website, keeping only the first match per category.
// Precedence: map-service href or map-like anchor text, then .pdf href
// or entry/flyer text, then any other external href with website-like
// text.
func ExtractLinks(sel *goquery.Selection) (mapLink, flyerURL, websiteURL string) {
	mapDomains := []string{"maps.google", "google.com/maps", "goo.gl/maps", "mapquest.com", "bing.com/maps", "openstreetmap.org"}
	mapWords := []string{"map", "directions", "location"}
	flyerWords := []string{"entry", "flyer", "form"}
	siteWords := []string{"website", "details", "info", "site"}

	sel.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		lowerHref := strings.ToLower(href)

		if mapLink == "" && (containsAny(lowerHref, mapDomains) || containsAny(text, mapWords)) {
			mapLink = href
			return
		}
		if flyerURL == "" && (strings.HasSuffix(lowerHref, ".pdf") || containsAny(text, flyerWords)) {
			flyerURL = href
			return
		}
		if websiteURL == "" && strings.HasPrefix(lowerHref, "http") && containsAny(text, siteWords) {
			websiteURL = href
		}
	})

	return mapLink, flyerURL, websiteURL
}

// ExtractCoordinates parses coordinates out of a map link's query or
// path, falling back to the venue seed table matched against the
// location text and then the ride name. Returns nil when nothing
// plausible is found.
func ExtractCoordinates(mapLink, location, name string) *models.Coordinates {
	if mapLink != "" {
		for _, re := range []*regexp.Regexp{latLngQueryRe, latLngPathRe} {
			if m := re.FindStringSubmatch(mapLink); m != nil {
				lat, err1 := strconv.ParseFloat(m[1], 64)
				lng, err2 := strconv.ParseFloat(m[2], 64)
				if err1 == nil && err2 == nil {
					c := models.Coordinates{Latitude: lat, Longitude: lng}
					if models.ValidateCoordinates(c) {
						return &c
					}
				}
			}
		}
	}

	for _, text := range []string{location, name} {
		lower := strings.ToLower(text)
		for venue, coords := range venueCoordinates {
			if strings.Contains(lower, venue) {
				c := coords
				return &c
			}
		}
	}

	return nil
}

// ExtractRegion matches the fragment against the fixed AERC region
// enumeration: dedicated region cell, region-labeled element, "region:
// XX" / "XX region" patterns, then full region names. Defaults to the
// UNKNOWN sentinel.
func ExtractRegion(sel *goquery.Selection) string {
	if cell := strings.ToUpper(strings.TrimSpace(sel.Find("td.region").First().Text())); models.ValidateRegion(cell) {
		return cell
	}
	if labeled := strings.ToUpper(findDetailValue(sel, "region")); models.ValidateRegion(labeled) {
		return labeled
	}

	text := sel.Text()
	if m := regionLabelRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := regionSuffixRe.FindStringSubmatch(text); m != nil {
		return strings.ToUpper(m[1])
	}

	lower := strings.ToLower(text)
	for full, code := range regionFullNames {
		if strings.Contains(lower, full+" region") {
			return code
		}
	}

	return models.RegionUnknown
}

// DetectCancellation reports whether any cancellation/postponement
// keyword appears in the text, case-insensitively.
func DetectCancellation(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range cancellationKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// DetectIntroRide decides whether the event offers an introductory
// ride: a distance token carrying an "intro" marker or a value of 15
// miles or less, else intro-ride phrasing anywhere in the fragment text
// or in the cells that usually carry it.
func DetectIntroRide(sel *goquery.Selection, distances []string) bool {
	for _, d := range distances {
		lower := strings.ToLower(d)
		if strings.Contains(lower, "intro") {
			return true
		}
		if m := distanceTokenRe.FindString(d); m != "" {
			if value, err := strconv.ParseFloat(m, 64); err == nil && value <= 15 {
				return true
			}
		}
	}

	texts := []string{
		sel.Text(),
		sel.Find("td.rideDistances").Text(),
		sel.Find("td.rideLocation").Text(),
		sel.Find("span.rideName").Text(),
		sel.Find("td.rideDescription").Text(),
	}
	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, phrase := range introRidePhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}

	return false
}

// DecomposeLocation splits a free-form location string into city, state,
// and country using a layered heuristic: hard-coded venue exceptions,
// Canadian-province detection (code or full name anchored by common
// delimiters), a "City, ST[, Country]" comma pattern, and finally a
// trailing "City ST" token pair. Country defaults to USA.
func DecomposeLocation(location string) models.Location {
	result := models.Location{Name: location, Country: "USA"}
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return result
	}

	lower := strings.ToLower(trimmed)
	for venue, loc := range locationExceptions {
		if strings.Contains(lower, venue) {
			result.City = loc.City
			result.State = loc.State
			result.Country = loc.Country
			return result
		}
	}

	if m := canadianProvinceRe.FindStringSubmatchIndex(trimmed); m != nil {
		code := trimmed[m[2]:m[3]]
		result.State = code
		result.Country = "Canada"
		result.City = lastPlaceToken(trimmed[:m[2]])
		return result
	}
	for name, code := range canadianProvinceNames {
		if idx := strings.Index(lower, name); idx >= 0 {
			result.State = code
			result.Country = "Canada"
			result.City = lastPlaceToken(trimmed[:idx])
			return result
		}
	}

	segments := strings.Split(trimmed, ",")
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
	}
	if len(segments) >= 2 {
		last := segments[len(segments)-1]
		if usStates[strings.ToUpper(last)] {
			result.State = strings.ToUpper(last)
			result.City = segments[len(segments)-2]
			return result
		}
		if len(segments) >= 3 && isCountryWord(last) {
			state := strings.ToUpper(segments[len(segments)-2])
			if usStates[state] || canadianProvinces[state] {
				result.State = state
				result.City = segments[len(segments)-3]
				result.Country = canonicalCountry(last)
				return result
			}
		}
		// Last segment may still be a "City ST" pair.
		if city, state, ok := trailingCityState(last); ok {
			result.City = city
			result.State = state
			return result
		}
	}

	if city, state, ok := trailingCityState(trimmed); ok {
		result.City = city
		result.State = state
		return result
	}

	return result
}

// trailingCityState matches an end-of-string "City ST" token pattern.
func trailingCityState(text string) (string, string, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", "", false
	}
	state := strings.ToUpper(fields[len(fields)-1])
	if !usStates[state] {
		return "", "", false
	}
	return fields[len(fields)-2], state, true
}

// lastPlaceToken returns the final place name before a province match:
// everything after the last comma, minus trailing delimiters.
func lastPlaceToken(prefix string) string {
	prefix = strings.Trim(prefix, " ,")
	if idx := strings.LastIndex(prefix, ","); idx >= 0 {
		prefix = prefix[idx+1:]
	}
	return strings.TrimSpace(prefix)
}

func isCountryWord(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "usa", "us", "united states", "canada":
		return true
	}
	return false
}

func canonicalCountry(s string) string {
	if strings.ToLower(strings.TrimSpace(s)) == "canada" {
		return "Canada"
	}
	return "USA"
}

// findDetailValue scans nested detail-table rows for a label cell
// matching one of the given labels (case-insensitive) and returns the
// trimmed value from the row's last cell.
func findDetailValue(sel *goquery.Selection, labels ...string) string {
	value := ""
	sel.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}
		label := strings.ToLower(strings.Trim(strings.TrimSpace(cells.First().Text()), ":"))
		for _, want := range labels {
			if label == want {
				value = strings.TrimSpace(cells.Last().Text())
				return false
			}
		}
		return true
	})
	return value
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
