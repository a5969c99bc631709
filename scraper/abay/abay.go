package abay

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/Gabien21/project-airfare/config"
	"github.com/Gabien21/project-airfare/models"
	"github.com/Gabien21/project-airfare/utils"
)

const searchURLFormat = "https://www.abay.vn/San-Ve-May-Bay/%s-%s/chang-le?date=%s"

// Scraper crawls the one-way domestic flight search for each configured
// (route, travel day) pair and collects raw listing rows. Every field stays
// a raw string; parsing belongs to the cleaner.
type Scraper struct {
	cfg     *config.Config
	logger  *utils.Logger
	pool    *utils.WorkerPool
	visited *utils.SearchSet
	retry   *utils.RetryConfig

	mu      sync.Mutex
	byRoute map[string][]*models.RawFlight
}

// New creates a ready-to-use flight Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:     cfg,
		logger:  logger,
		pool:    utils.NewWorkerPool(cfg.MaxConcurrency, cfg.RateLimitMs),
		visited: utils.NewSearchSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		byRoute: make(map[string][]*models.RawFlight),
	}
}

// Scrape sweeps every route over the configured day horizon and returns the
// collected rows grouped per route ("SGN-HAN" → rows). Failed searches are
// logged and skipped; a batch with zero rows overall is an error.
func (s *Scraper) Scrape(routes *config.Routes) (map[string][]*models.RawFlight, error) {
	s.logger.Info("[abay] Starting scrape — %d routes × %d days", len(routes.Routes), routes.DaysAhead)

	chromeBin := s.cfg.ChromeBin
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	s.logger.Info("[abay] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancelAlloc()

	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelSilent()

	today := time.Now()
	for _, route := range routes.Routes {
		for day := 1; day <= routes.DaysAhead; day++ {
			route, travelDate := route, today.AddDate(0, 0, day)
			key := fmt.Sprintf("%s-%s/%s", route.From, route.To, travelDate.Format("2006-01-02"))
			if !s.visited.Add(key) {
				continue
			}
			s.pool.Submit(func() {
				rows, err := s.scrapeSearch(silentCtx, route, travelDate)
				if err != nil {
					s.logger.Error("[abay] Search %s failed: %v", key, err)
					return
				}
				s.mu.Lock()
				routeKey := route.From + "-" + route.To
				s.byRoute[routeKey] = append(s.byRoute[routeKey], rows...)
				s.mu.Unlock()
				s.logger.Info("[abay] Search %s done — %d flights", key, len(rows))
			})
		}
	}
	s.pool.Wait()

	var total int
	for _, rows := range s.byRoute {
		total += len(rows)
	}
	s.logger.Info("[abay] Scrape complete — %d raw rows across %d routes", total, len(s.byRoute))
	if total == 0 {
		return nil, fmt.Errorf("abay: no flights scraped from any search")
	}
	return s.byRoute, nil
}

// flightRow mirrors the fields the in-page extraction returns.
type flightRow struct {
	DepartureLocation string `json:"departureLocation"`
	DepartureTime     string `json:"departureTime"`
	ArrivalLocation   string `json:"arrivalLocation"`
	ArrivalTime       string `json:"arrivalTime"`
	FlightDuration    string `json:"flightDuration"`
	AircraftType      string `json:"aircraftType"`
	TicketDescriptor  string `json:"ticketDescriptor"`
	PassengerType     string `json:"passengerType"`
	NumberOfTickets   string `json:"numberOfTickets"`
	PricePerTicket    string `json:"pricePerTicket"`
	TaxesAndFees      string `json:"taxesAndFees"`
	TotalPrice        string `json:"totalPrice"`
	CarryOnBaggage    string `json:"carryOnBaggage"`
	CheckedBaggage    string `json:"checkedBaggage"`
	RefundPolicy      string `json:"refundPolicy"`
}

// scrapeSearch loads one search-result page and extracts every outbound
// flight's detail tables.
func (s *Scraper) scrapeSearch(allocCtx context.Context, route config.Route, travelDate time.Time) ([]*models.RawFlight, error) {
	searchURL := fmt.Sprintf(searchURLFormat, route.From, route.To, travelDate.Format("02-01-2006"))
	opName := fmt.Sprintf("search-%s-%s", route.From, route.To)

	var rows []flightRow
	err := s.retry.Do(opName, func() error {
		ctx, cancel := chromedp.NewContext(allocCtx)
		defer cancel()

		ctx, cancelTimeout := context.WithTimeout(ctx, 120*time.Second)
		defer cancelTimeout()

		return chromedp.Run(ctx,
			chromedp.Navigate(searchURL),
			chromedp.WaitVisible(`#OutBound`, chromedp.ByID),
			chromedp.Sleep(2*time.Second),

			// Expand every flight's detail block so the hidden tables render.
			chromedp.Evaluate(`
				(function() {
					var buttons = document.querySelectorAll('#OutBound .i-result .linkViewFlightDetail');
					for (var i = 0; i < buttons.length; i++) {
						buttons[i].click();
					}
					return buttons.length;
				})()
			`, nil),
			chromedp.Sleep(2*time.Second),

			// Walk each detail block's four tables: itinerary, fare
			// breakdown, baggage, refund policy.
			chromedp.Evaluate(`
				(function() {
					var results = [];
					var details = document.querySelectorAll('#OutBound tr.flight-info-detail');
					for (var i = 0; i < details.length; i++) {
						var tables = details[i].querySelector('div');
						if (!tables) continue;
						tables = tables.querySelectorAll(':scope > table');
						if (tables.length === 0) continue;

						var row = {
							departureLocation: '', departureTime: '', arrivalLocation: '',
							arrivalTime: '', flightDuration: '', aircraftType: '',
							ticketDescriptor: '', passengerType: '', numberOfTickets: '',
							pricePerTicket: '', taxesAndFees: '', totalPrice: '',
							carryOnBaggage: '', checkedBaggage: '', refundPolicy: ''
						};

						var cells = tables[0].querySelector('tr');
						cells = cells ? cells.querySelectorAll(':scope > td') : [];
						if (cells.length >= 4) {
							var dep = cells[0].querySelectorAll('p');
							row.departureLocation = dep[0] ? dep[0].innerText.trim() : '';
							row.departureTime = dep[1] ? dep[1].innerText.trim() : '';

							var plane = cells[1].querySelectorAll('p');
							row.flightDuration = plane[0] ? plane[0].innerText.trim() : '';
							row.aircraftType = plane.length ? plane[plane.length - 1].innerText.trim() : '';

							var arr = cells[2].querySelectorAll('p');
							row.arrivalLocation = arr[0] ? arr[0].innerText.trim() : '';
							row.arrivalTime = arr[1] ? arr[1].innerText.trim() : '';

							var priceRow = cells[3].querySelector('tr');
							if (priceRow) {
								var tds = priceRow.querySelectorAll('td');
								if (tds.length) {
									row.ticketDescriptor = tds[tds.length - 1].innerText.trim().split('(vận')[0].trim();
								}
							}
						}

						if (tables[1]) {
							var fareRows = tables[1].querySelectorAll('tr');
							if (fareRows.length > 1) {
								var tds = fareRows[1].querySelectorAll('td');
								row.passengerType   = tds[0] ? tds[0].innerText.trim() : '';
								row.numberOfTickets = tds[1] ? tds[1].innerText.trim() : '';
								row.pricePerTicket  = tds[2] ? tds[2].innerText.trim() : '';
								row.taxesAndFees    = tds[3] ? tds[3].innerText.trim() : '';
								row.totalPrice      = tds[4] ? tds[4].innerText.trim() : '';
							}
						}

						if (tables[2]) {
							var bagRows = tables[2].querySelectorAll('tbody > tr');
							if (bagRows.length > 2) {
								var carry = bagRows[1].querySelectorAll('td');
								var checked = bagRows[2].querySelectorAll('td');
								row.carryOnBaggage = carry[1] ? carry[1].innerText.trim() : '';
								row.checkedBaggage = checked[1] ? checked[1].innerText.trim() : '';
							}
						}

						if (tables[3]) {
							var policyRows = tables[3].querySelectorAll('tbody > tr');
							var clauses = [];
							for (var p = 1; p < policyRows.length; p++) {
								clauses.push(policyRows[p].innerText.trim());
							}
							row.refundPolicy = "['" + clauses.map(function(c) {
								return c.replace(/\\/g, '\\\\').replace(/'/g, "\\'");
							}).join("', '") + "']";
							if (clauses.length === 0) row.refundPolicy = '[]';
						}

						results.push(row);
					}
					return results;
				})()
			`, &rows),
		)
	})
	if err != nil {
		return nil, err
	}

	scrapeTime := time.Now().Format("2006-01-02 15:04:05")
	out := make([]*models.RawFlight, 0, len(rows))
	for _, r := range rows {
		out = append(out, &models.RawFlight{
			DepartureLocation: r.DepartureLocation,
			DepartureTime:     r.DepartureTime,
			ArrivalLocation:   r.ArrivalLocation,
			ArrivalTime:       r.ArrivalTime,
			FlightDuration:    r.FlightDuration,
			AircraftType:      r.AircraftType,
			TicketDescriptor:  r.TicketDescriptor,
			PassengerType:     r.PassengerType,
			NumberOfTickets:   r.NumberOfTickets,
			PricePerTicket:    r.PricePerTicket,
			TaxesAndFees:      r.TaxesAndFees,
			TotalPrice:        r.TotalPrice,
			CarryOnBaggage:    r.CarryOnBaggage,
			CheckedBaggage:    r.CheckedBaggage,
			RefundPolicy:      r.RefundPolicy,
			ScrapeTime:        scrapeTime,
		})
	}
	return out, nil
}

// findChromeBinary locates an installed Chrome/Chromium.
func findChromeBinary() string {
	for _, bin := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(bin); err == nil {
			return path
		}
	}
	return ""
}
