package importer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mews-ugrads/mews-back-end/internal/store"
	"github.com/mews-ugrads/mews-back-end/pkg/logging"
)

// GraphStore is the write surface the importer needs.
type GraphStore interface {
	UpsertRelatednessSignal(ctx context.Context, scrape1ID, scrape2ID, method string, weight float64, meta string) error
	InsertPostCentrality(ctx context.Context, scrapeID string, score float64, evaluated time.Time) error
}

// Edge is one accumulated relatedness edge keyed by scrape ids. Signal
// weights sum across dump lines for the same pair; metadata keeps the
// terms common to both endpoints.
type Edge struct {
	Source string
	Target string

	RelTxtWt   float64
	RelTxtMeta string
	SubImgWt   float64
	SubImgMeta string
	OCRWt      float64
	OCRMeta    string
}

// Dump is a parsed relatedness dump: the edge list plus the centrality
// score each line reports for its endpoints.
type Dump struct {
	Edges      []Edge
	Centrality map[string]float64
}

// Report summarizes one import. Failures are per row, not fatal; a row
// referencing a scrape id with no post simply does not land.
type Report struct {
	Edges         int
	EdgeFailures  int
	Scores        int
	ScoreFailures int
}

// Importer loads relatedness dump files produced by the offline image
// analysis stage into the canonical store.
type Importer struct {
	store  GraphStore
	logger logging.Logger
}

// New creates an importer writing through st.
func New(st GraphStore, logger logging.Logger) *Importer {
	return &Importer{store: st, logger: logger}
}

// edgeAccumulator collects signal weights and metadata term sets for one
// source/target pair across dump lines.
type edgeAccumulator struct {
	relTxtWt float64
	relTxt1  map[string]struct{}
	relTxt2  map[string]struct{}
	subImgWt float64
	subImg   string
	ocrWt    float64
	ocr1     map[string]struct{}
	ocr2     map[string]struct{}
}

// ParseDump reads a semicolon-separated relatedness dump. The first line
// is a header. Each remaining line carries two image filenames, two
// scrape ids, a weight, a detection method, method metadata, and a
// trailing comma-separated centrality score pair. Malformed lines are
// skipped with a warning rather than aborting the parse.
func (im *Importer) ParseDump(r io.Reader) (*Dump, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read dump header: %w", err)
		}
		return &Dump{Centrality: map[string]float64{}}, nil
	}

	type pair struct{ source, target string }
	edges := make(map[pair]*edgeAccumulator)
	var order []pair
	centrality := make(map[string]float64)

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}

		items := strings.Split(line, ";")
		if len(items) < 10 {
			im.logger.WithField("line", lineNo).Warn("Skipping malformed dump line")
			continue
		}

		source := items[2]
		target := items[3]
		weight, err := strconv.ParseFloat(items[4], 64)
		if err != nil {
			im.logger.WithField("line", lineNo).Warn("Skipping dump line with bad weight")
			continue
		}
		method := items[5]

		scores := strings.Split(items[9], ",")
		if len(scores) != 2 {
			im.logger.WithField("line", lineNo).Warn("Skipping dump line with bad centrality pair")
			continue
		}
		sourceScore, err1 := strconv.ParseFloat(strings.TrimSpace(scores[0]), 64)
		targetScore, err2 := strconv.ParseFloat(strings.TrimSpace(scores[1]), 64)
		if err1 != nil || err2 != nil {
			im.logger.WithField("line", lineNo).Warn("Skipping dump line with bad centrality pair")
			continue
		}
		centrality[source] = sourceScore
		centrality[target] = targetScore

		key := pair{source, target}
		acc, ok := edges[key]
		if !ok {
			acc = &edgeAccumulator{}
			edges[key] = acc
			order = append(order, key)
		}

		switch method {
		case store.MethodRelatedText:
			acc.relTxtWt += weight
			acc.relTxt1 = parseTermSet(items[7])
			acc.relTxt2 = parseTermSet(items[8])
		case store.MethodSubImage:
			acc.subImgWt += weight
			acc.subImg = items[6]
		case store.MethodOCR:
			acc.ocrWt += weight
			acc.ocr1 = parseTermSet(items[7])
			acc.ocr2 = parseTermSet(items[8])
		default:
			im.logger.WithFields(logging.Fields{
				"line":   lineNo,
				"method": method,
			}).Warn("Skipping dump line with unknown method")
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}

	dump := &Dump{Centrality: centrality}
	for _, key := range order {
		acc := edges[key]
		edge := Edge{
			Source:     key.source,
			Target:     key.target,
			RelTxtWt:   acc.relTxtWt,
			SubImgWt:   acc.subImgWt,
			SubImgMeta: acc.subImg,
			OCRWt:      acc.ocrWt,
		}
		if acc.relTxtWt > 0 {
			edge.RelTxtMeta = commonTerms(acc.relTxt1, acc.relTxt2)
		}
		if acc.ocrWt > 0 {
			edge.OCRMeta = commonTerms(acc.ocr1, acc.ocr2)
		}
		dump.Edges = append(dump.Edges, edge)
	}
	return dump, nil
}

// Import parses the dump and writes its edges and centrality scores,
// continuing past rows that fail to land.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Report, error) {
	var report Report

	dump, err := im.ParseDump(r)
	if err != nil {
		return report, err
	}
	evaluated := time.Now()

	for _, edge := range dump.Edges {
		if err := im.importEdge(ctx, edge); err != nil {
			report.EdgeFailures++
			im.logger.WithError(err).WithFields(logging.Fields{
				"source": edge.Source,
				"target": edge.Target,
			}).Warn("Failed to import edge")
			continue
		}
		report.Edges++
	}

	// Deterministic write order for the score map.
	scrapeIDs := make([]string, 0, len(dump.Centrality))
	for scrapeID := range dump.Centrality {
		scrapeIDs = append(scrapeIDs, scrapeID)
	}
	sort.Strings(scrapeIDs)

	for _, scrapeID := range scrapeIDs {
		if err := im.store.InsertPostCentrality(ctx, scrapeID, dump.Centrality[scrapeID], evaluated); err != nil {
			report.ScoreFailures++
			im.logger.WithError(err).WithField("scrape_id", scrapeID).Warn("Failed to import centrality score")
			continue
		}
		report.Scores++
	}

	im.logger.WithFields(logging.Fields{
		"edges":          report.Edges,
		"edge_failures":  report.EdgeFailures,
		"scores":         report.Scores,
		"score_failures": report.ScoreFailures,
	}).Info("Graph import finished")

	return report, nil
}

func (im *Importer) importEdge(ctx context.Context, edge Edge) error {
	if edge.RelTxtWt > 0 {
		if err := im.store.UpsertRelatednessSignal(ctx, edge.Source, edge.Target, store.MethodRelatedText, edge.RelTxtWt, edge.RelTxtMeta); err != nil {
			return err
		}
	}
	if edge.SubImgWt > 0 {
		if err := im.store.UpsertRelatednessSignal(ctx, edge.Source, edge.Target, store.MethodSubImage, edge.SubImgWt, edge.SubImgMeta); err != nil {
			return err
		}
	}
	if edge.OCRWt > 0 {
		if err := im.store.UpsertRelatednessSignal(ctx, edge.Source, edge.Target, store.MethodOCR, edge.OCRWt, edge.OCRMeta); err != nil {
			return err
		}
	}
	return nil
}

// parseTermSet reads a set-literal metadata field of the form
// {'term', 'other term'}; set() and empty fields yield an empty set.
func parseTermSet(s string) map[string]struct{} {
	terms := make(map[string]struct{})
	s = strings.TrimSpace(s)
	if s == "" || s == "set()" {
		return terms
	}
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")

	var current strings.Builder
	inQuote := false
	var quote rune
	for _, r := range s {
		switch {
		case inQuote && r == quote:
			inQuote = false
			terms[current.String()] = struct{}{}
			current.Reset()
		case inQuote:
			current.WriteRune(r)
		case r == '\'' || r == '"':
			inQuote = true
			quote = r
		}
	}
	return terms
}

// commonTerms intersects two term sets and joins the result with
// semicolons, sorted so repeated imports produce identical metadata.
func commonTerms(a, b map[string]struct{}) string {
	var common []string
	for term := range a {
		if _, ok := b[term]; ok {
			common = append(common, term)
		}
	}
	sort.Strings(common)
	return strings.Join(common, ";")
}
