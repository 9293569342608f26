package ote

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dratek/powerplan-go/blocks"
)

const (
	baseURL  = "https://www.ote-cr.cz/services/PublicDataService"
	soapNS   = "http://schemas.xmlsoap.org/soap/envelope/"
	schemaNS = "http://www.ote-cr.cz/schema/service/public"
)

const requestTemplate = `<soapenv:Envelope xmlns:soapenv="` + soapNS + `" xmlns:pub="` + schemaNS + `">
    <soapenv:Header/>
    <soapenv:Body>
        <pub:GetDamPricePeriodE>
            <pub:StartDate>%s</pub:StartDate>
            <pub:EndDate>%s</pub:EndDate>
            <pub:PeriodResolution>PT15M</pub:PeriodResolution>
        </pub:GetDamPricePeriodE>
    </soapenv:Body>
</soapenv:Envelope>`

// DamPrice is one day-ahead auction entry, still in the auction's
// native EUR/MWh.
type DamPrice struct {
	Block blocks.DateBlock
	Price float64
}

// Client fetches the OTE day-ahead market series at 15-minute
// resolution. Hourly selects the hourly auction price element instead
// of the quarter-hourly one.
type Client struct {
	client  *http.Client
	baseURL string
	hourly  bool
}

func New(hourly bool) *Client {
	return &Client{
		client:  &http.Client{},
		baseURL: baseURL,
		hourly:  hourly,
	}
}

type damEnvelope struct {
	Body struct {
		Fault *struct {
			FaultString string `xml:"faultstring"`
		} `xml:"Fault"`
		Response struct {
			Items []damItem `xml:"Result>Item"`
		} `xml:"GetDamPricePeriodEResponse"`
	} `xml:"Body"`
}

type damItem struct {
	Date        string   `xml:"Date"`
	PeriodIndex int      `xml:"PeriodIndex"`
	Price       *float64 `xml:"Price"`
	HourlyPrice *float64 `xml:"HourlyPrice"`
}

// GetDamPrices fetches the auction series spanning the three operating
// calendar days around the given instant. Entries OTE has not
// published yet (tomorrow before the auction closes) are simply
// absent.
func (c *Client) GetDamPrices(ctx context.Context, now time.Time) ([]DamPrice, error) {
	local := now.In(blocks.OperatingLocation())
	body := fmt.Sprintf(requestTemplate,
		local.AddDate(0, 0, -1).Format("2006-01-02"),
		local.AddDate(0, 0, 1).Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dam prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "xml") {
		return nil, fmt.Errorf("unexpected content type: %s", ct)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var envelope damEnvelope
	if err := xml.Unmarshal(raw, &envelope); err != nil {
		if strings.Contains(string(raw), "Application is not available") {
			return nil, fmt.Errorf("ote application is currently not available")
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Body.Fault != nil {
		return nil, fmt.Errorf("soap fault: %s", envelope.Body.Fault.FaultString)
	}

	prices := make([]DamPrice, 0, len(envelope.Body.Response.Items))
	for _, item := range envelope.Body.Response.Items {
		price := item.Price
		if c.hourly {
			price = item.HourlyPrice
		}
		if price == nil || item.PeriodIndex < 1 || item.Date == "" {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", item.Date, blocks.OperatingLocation())
		if err != nil {
			return nil, fmt.Errorf("bad item date %q: %w", item.Date, err)
		}
		start := day.Add(time.Duration(item.PeriodIndex-1) * 15 * time.Minute)
		prices = append(prices, DamPrice{
			Block: blocks.FromTime(start),
			Price: *price,
		})
	}

	return prices, nil
}

// TomorrowAvailable reports whether the day-ahead auction results for
// tomorrow are published, which happens in the early local afternoon.
func (c *Client) TomorrowAvailable(now time.Time) bool {
	return now.In(blocks.OperatingLocation()).Hour() > 12
}
