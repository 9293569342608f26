package ote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dratek/powerplan-go/blocks"
)

const damResponse = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <GetDamPricePeriodEResponse xmlns="http://www.ote-cr.cz/schema/service/public">
      <Result>
        <Item>
          <Date>2025-06-13</Date>
          <PeriodIndex>1</PeriodIndex>
          <Price>100.50</Price>
          <HourlyPrice>95.00</HourlyPrice>
        </Item>
        <Item>
          <Date>2025-06-13</Date>
          <PeriodIndex>2</PeriodIndex>
          <Price>-4.25</Price>
          <HourlyPrice>95.00</HourlyPrice>
        </Item>
        <Item>
          <Date>2025-06-14</Date>
          <PeriodIndex>1</PeriodIndex>
        </Item>
      </Result>
    </GetDamPricePeriodEResponse>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

const faultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/">
  <SOAP-ENV:Body>
    <SOAP-ENV:Fault>
      <faultcode>SOAP-ENV:Server</faultcode>
      <faultstring>PUBLIC_002</faultstring>
    </SOAP-ENV:Fault>
  </SOAP-ENV:Body>
</SOAP-ENV:Envelope>`

func damServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		if !strings.Contains(string(body), "GetDamPricePeriodE") {
			t.Errorf("unexpected request body: %s", body)
		}
		w.Header().Set("Content-Type", "text/xml; charset=utf-8")
		w.Write([]byte(payload))
	}))
}

func TestGetDamPrices(t *testing.T) {
	srv := damServer(t, damResponse)
	defer srv.Close()

	c := New(false)
	c.baseURL = srv.URL

	prices, err := c.GetDamPrices(context.Background(), time.Date(2025, 6, 13, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}

	// The unpriced item for 2025-06-14 is dropped.
	if len(prices) != 2 {
		t.Fatalf("expected 2 prices, got %d", len(prices))
	}

	// Period 1 starts at local midnight, which is on the previous UTC date in summer.
	want := blocks.DateBlock{Date: "2025-06-12", Block: 88}
	if prices[0].Block != want {
		t.Errorf("expected block %s, got %s", want, prices[0].Block)
	}
	if prices[0].Price != 100.50 {
		t.Errorf("expected price 100.50, got %f", prices[0].Price)
	}
	if prices[1].Block != want.Add(1) || prices[1].Price != -4.25 {
		t.Errorf("unexpected second entry %+v", prices[1])
	}
}

func TestGetDamPricesHourly(t *testing.T) {
	srv := damServer(t, damResponse)
	defer srv.Close()

	c := New(true)
	c.baseURL = srv.URL

	prices, err := c.GetDamPrices(context.Background(), time.Date(2025, 6, 13, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if len(prices) != 2 || prices[0].Price != 95.00 {
		t.Errorf("expected the hourly price element, got %+v", prices)
	}
}

func TestGetDamPricesSoapFault(t *testing.T) {
	srv := damServer(t, faultResponse)
	defer srv.Close()

	c := New(false)
	c.baseURL = srv.URL

	_, err := c.GetDamPrices(context.Background(), time.Now())
	if err == nil || !strings.Contains(err.Error(), "PUBLIC_002") {
		t.Errorf("expected a soap fault error, got %v", err)
	}
}

func TestTomorrowAvailable(t *testing.T) {
	c := New(false)
	loc := blocks.OperatingLocation()

	if c.TomorrowAvailable(time.Date(2025, 6, 13, 12, 30, 0, 0, loc)) {
		t.Error("tomorrow must not be expected before the auction publishes")
	}
	if !c.TomorrowAvailable(time.Date(2025, 6, 13, 13, 5, 0, 0, loc)) {
		t.Error("tomorrow should be expected in the afternoon")
	}
}
