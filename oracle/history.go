package oracle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"auto_sniper/httputil"
	"auto_sniper/models"
)

var (
	technicalLabels = []string{
		"Pojemność silnika",
		"Moc silnika",
		"Norma euro",
		"Paliwo",
		"Liczba miejsc ogółem",
		"Liczba miejsc siedzących",
		"Masa własna pojazdu",
		"Dopuszczalna ładowność",
		"Dopuszczalna masa całkowita",
		"Liczba osi",
		"Największy dopuszczalny nacisk osi",
	}
	eventLabels = []string{
		"Właściciele",
		"Współwłaściciele",
		"Województwo",
		"Polisa OC",
		"Data ważności polisy",
		"Badanie techniczne",
		"Ostatni stan licznika",
		"Liczba aktualnych właścicieli",
		"Liczba aktualnych współwłaścicieli",
	}
	// Section headings that end the last value of a block.
	stopLabels = []string{"Dokumenty", "Oś czasu", "Zdarzenia", "Ryzyka"}

	labelPatterns = compileLabels(technicalLabels, eventLabels)
	stopPatterns  = compileStops(stopLabels)
	firstNumber   = regexp.MustCompile(`\d+`)
	spaceRun      = regexp.MustCompile(`\s+`)
)

func compileStops(labels []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(labels))
	for _, l := range labels {
		out = append(out, regexp.MustCompile(regexp.QuoteMeta(l)))
	}
	return out
}

func compileLabels(groups ...[]string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp)
	for _, g := range groups {
		for _, l := range g {
			out[l] = regexp.MustCompile(regexp.QuoteMeta(l) + `[^:\n]{0,40}:\s*`)
		}
	}
	return out
}

// GovHistoryClient fetches the vehicle history report for a car and parses
// its technical data and event summary.
type GovHistoryClient struct {
	base  url.URL
	http  *http.Client
	retry httputil.Retry
}

func NewGovHistoryClient(baseURL string, client *http.Client) (*GovHistoryClient, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &GovHistoryClient{base: *base, http: client, retry: httputil.DefaultRetry}, nil
}

func (c *GovHistoryClient) Lookup(ctx context.Context, plate, vin, firstRegistration string) (*models.CarHistory, error) {
	u := c.base
	params := url.Values{}
	params.Set("registrationNumber", plate)
	params.Set("VINNumber", vin)
	params.Set("firstRegistrationDate", firstRegistration)
	u.RawQuery = params.Encode()

	var history *models.CarHistory
	err := c.retry.Do(ctx, "vehicle history", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return httputil.Permanent(err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			history = &models.CarHistory{}
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(body))
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return httputil.Permanent(fmt.Errorf("parse history report: %w", err))
		}
		history = ParseHistoryReport(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

// ParseHistoryReport extracts the sections of a history report. A section
// whose labels are all absent is left nil.
func ParseHistoryReport(doc *goquery.Document) *models.CarHistory {
	text := spaceRun.ReplaceAllString(doc.Find("body").Text(), " ")
	fields := extractFields(text)

	history := &models.CarHistory{}
	if hasAny(fields, technicalLabels) {
		history.TechnicalData = &models.TechnicalData{
			EngineCapacity:  fields["Pojemność silnika"],
			EnginePower:     fields["Moc silnika"],
			EuroNorm:        fields["Norma euro"],
			FuelType:        fields["Paliwo"],
			TotalSeats:      atoiPrefix(fields["Liczba miejsc ogółem"]),
			SeatingCapacity: atoiPrefix(fields["Liczba miejsc siedzących"]),
			VehicleWeight:   fields["Masa własna pojazdu"],
			MaxLoad:         fields["Dopuszczalna ładowność"],
			TotalMass:       fields["Dopuszczalna masa całkowita"],
			AxlesCount:      atoiPrefix(fields["Liczba osi"]),
			MaxAxlePressure: fields["Największy dopuszczalny nacisk osi"],
		}
	}
	if hasAny(fields, eventLabels) {
		history.EventSummary = &models.EventSummary{
			OwnersCount:          atoiPrefix(fields["Właściciele"]),
			CoOwnersCount:        atoiPrefix(fields["Współwłaściciele"]),
			RegistrationProvince: fields["Województwo"],
			CurrentInsurance: models.Insurance{
				Status:         fields["Polisa OC"],
				ExpirationDate: fields["Data ważności polisy"],
			},
			CurrentTechnicalInspection: models.TechnicalInspection{
				Status:              fields["Badanie techniczne"],
				LastOdometerReading: fields["Ostatni stan licznika"],
			},
			CurrentOwnersCount:   atoiPrefix(fields["Liczba aktualnych właścicieli"]),
			CurrentCoOwnersCount: atoiPrefix(fields["Liczba aktualnych współwłaścicieli"]),
		}
	}
	return history
}

type labelHit struct {
	label      string
	start      int
	valueStart int
}

// extractFields maps each label found in text to the text between it and
// the next label.
func extractFields(text string) map[string]string {
	var hits []labelHit
	for label, re := range labelPatterns {
		if loc := re.FindStringIndex(text); loc != nil {
			hits = append(hits, labelHit{label: label, start: loc[0], valueStart: loc[1]})
		}
	}
	for _, re := range stopPatterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			hits = append(hits, labelHit{start: loc[0], valueStart: loc[1]})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].start < hits[j].start })

	fields := make(map[string]string, len(hits))
	for i, h := range hits {
		end := len(text)
		if i+1 < len(hits) {
			end = hits[i+1].start
		}
		if end < h.valueStart {
			end = h.valueStart
		}
		if h.label != "" {
			fields[h.label] = strings.TrimSpace(text[h.valueStart:end])
		}
	}
	return fields
}

func hasAny(fields map[string]string, labels []string) bool {
	for _, l := range labels {
		if _, ok := fields[l]; ok {
			return true
		}
	}
	return false
}

func atoiPrefix(s string) int {
	n, _ := strconv.Atoi(firstNumber.FindString(s))
	return n
}
