package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ChunkConfig controls how the chunker packs event containers into
// independently parseable HTML fragments.
type ChunkConfig struct {
	// TargetSize is the byte size the chunker packs toward. It can grow
	// adaptively (see CreateChunks) but never outside [MinSize, MaxSize].
	TargetSize int
	MinSize    int
	MaxSize    int
	// Selector locates one calendar row / event container.
	Selector string
}

// DefaultChunkConfig returns the chunking parameters used for the AERC
// calendar layout.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		TargetSize: 20000,
		MinSize:    5000,
		MaxSize:    120000,
		Selector:   "div.calendarRow",
	}
}

// Chunker splits a cleaned HTML calendar document into bounded-size
// fragments, never splitting a single event container across chunks.
type Chunker struct {
	config ChunkConfig
}

// NewChunker creates a chunker with the given configuration, filling in
// defaults for zero-valued fields.
func NewChunker(config ChunkConfig) *Chunker {
	defaults := DefaultChunkConfig()
	if config.TargetSize <= 0 {
		config.TargetSize = defaults.TargetSize
	}
	if config.MinSize <= 0 {
		config.MinSize = defaults.MinSize
	}
	if config.MaxSize <= 0 {
		config.MaxSize = defaults.MaxSize
	}
	if config.Selector == "" {
		config.Selector = defaults.Selector
	}
	return &Chunker{config: config}
}

// CreateChunks splits the document into chunks of whole event containers.
// Containers are packed greedily toward the target size; an oversized
// container grows the target (clamped to [MinSize, MaxSize]) for
// subsequent packing decisions. Each chunk is re-wrapped in a minimal
// container element so it stays independently parseable. Returns
// NoEventsFoundError when the document has no recognizable containers.
func (c *Chunker) CreateChunks(html string) ([]string, error) {
	if strings.TrimSpace(html) == "" {
		return nil, &EmptyInputError{}
	}

	containers, err := c.extractContainers(html)
	if err != nil || len(containers) == 0 {
		// Degrade to a permissive regex scan before failing; real-world
		// calendar markup is frequently malformed.
		containers = c.extractContainersPermissive(html)
	}
	if len(containers) == 0 {
		return nil, &NoEventsFoundError{Selector: c.config.Selector}
	}

	return c.pack(containers), nil
}

// extractContainers locates event containers with the primary parser.
func (c *Chunker) extractContainers(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse calendar HTML: %w", err)
	}

	var containers []string
	doc.Find(c.config.Selector).Each(func(_ int, sel *goquery.Selection) {
		markup, err := goquery.OuterHtml(sel)
		if err != nil {
			return
		}
		containers = append(containers, markup)
	})

	return containers, nil
}

// extractContainersPermissive scans the raw markup for container class
// boundaries without building a DOM. Used when the primary parse finds
// nothing, which happens on badly nested calendar tables.
func (c *Chunker) extractContainersPermissive(html string) []string {
	class := containerClass(c.config.Selector)
	if class == "" {
		return nil
	}

	pattern := regexp.MustCompile(`(?is)<div[^>]*class="[^"]*` + regexp.QuoteMeta(class) + `[^"]*"[^>]*>`)
	starts := pattern.FindAllStringIndex(html, -1)
	if len(starts) == 0 {
		return nil
	}

	var containers []string
	for i, loc := range starts {
		end := len(html)
		if i+1 < len(starts) {
			end = starts[i+1][0]
		}
		containers = append(containers, strings.TrimSpace(html[loc[0]:end]))
	}
	return containers
}

// pack greedily fills chunks with whole containers up to the current
// target size, growing the target when a single container dominates it.
func (c *Chunker) pack(containers []string) []string {
	target := clamp(c.config.TargetSize, c.config.MinSize, c.config.MaxSize)

	var chunks []string
	var current []string
	currentSize := 0

	for _, container := range containers {
		size := len(container)

		// A container over half the target would leave chunks with one or
		// two rows each; grow the target so packing stays efficient. The
		// new target applies from this container on, not retroactively.
		if size > target/2 {
			target = clamp(size*3/2, c.config.MinSize, c.config.MaxSize)
		}

		if currentSize > 0 && currentSize+size > target {
			chunks = append(chunks, wrapChunk(current))
			current = nil
			currentSize = 0
		}

		current = append(current, container)
		currentSize += size
	}

	if len(current) > 0 {
		chunks = append(chunks, wrapChunk(current))
	}

	return chunks
}

// wrapChunk re-wraps packed containers so each chunk parses on its own.
func wrapChunk(containers []string) string {
	return `<div class="calendar">` + strings.Join(containers, "\n") + `</div>`
}

// containerClass pulls the class name out of a "tag.class" selector.
func containerClass(selector string) string {
	if idx := strings.LastIndex(selector, "."); idx >= 0 {
		return selector[idx+1:]
	}
	return selector
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
