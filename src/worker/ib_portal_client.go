package worker

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"option-screener/src/eventmodels"
	"option-screener/src/marketdata"
)

// Client Portal streaming field codes for the tick fields we consume.
var portalFieldCodes = map[string]eventmodels.TickField{
	"31":   eventmodels.TickFieldLast,
	"84":   eventmodels.TickFieldBid,
	"86":   eventmodels.TickFieldAsk,
	"7308": eventmodels.TickFieldDelta,
	"7309": eventmodels.TickFieldGamma,
	"7310": eventmodels.TickFieldTheta,
	"7311": eventmodels.TickFieldVega,
	"7633": eventmodels.TickFieldIV,
	"7635": eventmodels.TickFieldMark,
}

// IBPortalClient implements marketdata.Service against the IB Client Portal
// gateway: REST for contract search, chain enumeration and history, a
// websocket smd stream for quotes. Callbacks are delivered on the client's
// own goroutines.
type IBPortalClient struct {
	baseURL string
	wsURL   string
	handler marketdata.Handler
	client  http.Client

	mu          sync.Mutex
	conn        *websocket.Conn
	reqByConID  map[int64]eventmodels.RequestID
	conIDByReq  map[eventmodels.RequestID]int64
	contractFor map[eventmodels.RequestID]eventmodels.Contract
}

func NewIBPortalClient(baseURL, wsURL string, handler marketdata.Handler) *IBPortalClient {
	return &IBPortalClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		wsURL:   wsURL,
		handler: handler,
		client: http.Client{
			Timeout: 30 * time.Second,
			// the local gateway serves a self-signed certificate
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
		reqByConID:  make(map[int64]eventmodels.RequestID),
		conIDByReq:  make(map[eventmodels.RequestID]int64),
		contractFor: make(map[eventmodels.RequestID]eventmodels.Contract),
	}
}

// --- marketdata.Service ---

func (c *IBPortalClient) LookupContract(id eventmodels.RequestID, contract eventmodels.Contract) error {
	if contract.SecType == eventmodels.SecurityTypeOption && contract.Right == "" {
		go c.lookupChain(id, contract)
		return nil
	}

	go c.lookupStock(id, contract)

	return nil
}

func (c *IBPortalClient) SubscribeQuote(id eventmodels.RequestID, contract eventmodels.Contract, genericTicks string) error {
	if contract.ConID == 0 {
		return fmt.Errorf("IBPortalClient:SubscribeQuote(): contract %s has no conid", contract.Description())
	}

	conn, err := c.ensureConnected()
	if err != nil {
		return fmt.Errorf("IBPortalClient:SubscribeQuote(): %w", err)
	}

	c.mu.Lock()
	c.reqByConID[contract.ConID] = id
	c.conIDByReq[id] = contract.ConID
	c.contractFor[id] = contract
	c.mu.Unlock()

	fields := make([]string, 0, len(portalFieldCodes))
	for code := range portalFieldCodes {
		fields = append(fields, fmt.Sprintf("%q", code))
	}

	payload := fmt.Sprintf(`smd+%d+{"fields":[%s]}`, contract.ConID, strings.Join(fields, ","))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		return fmt.Errorf("IBPortalClient:SubscribeQuote(): failed to write subscribe message: %w", err)
	}

	return nil
}

func (c *IBPortalClient) RequestHistory(id eventmodels.RequestID, contract eventmodels.Contract, window marketdata.HistoryWindow) error {
	go c.fetchHistory(id, contract, window)

	return nil
}

func (c *IBPortalClient) Cancel(id eventmodels.RequestID) {
	c.mu.Lock()
	conID, isQuote := c.conIDByReq[id]
	if isQuote {
		delete(c.conIDByReq, id)
		delete(c.reqByConID, conID)
		delete(c.contractFor, id)
	}
	conn := c.conn
	c.mu.Unlock()

	if !isQuote || conn == nil {
		return
	}

	payload := fmt.Sprintf(`umd+%d+{}`, conID)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		log.Errorf("IBPortalClient:Cancel(): failed to unsubscribe conid %d: %v", conID, err)
	}
}

// --- REST lookups ---

type secdefSearchDTO struct {
	ConID       json.Number `json:"conid"`
	Symbol      string      `json:"symbol"`
	SecType     string      `json:"secType"`
	Description string      `json:"description"`
}

func (c *IBPortalClient) lookupStock(id eventmodels.RequestID, contract eventmodels.Contract) {
	endpoint := fmt.Sprintf("%s/iserver/secdef/search?symbol=%s", c.baseURL, url.QueryEscape(contract.Symbol.String()))

	var results []secdefSearchDTO
	if err := c.getJSON(endpoint, &results); err != nil {
		c.handler.OnRequestError(id, 0, fmt.Sprintf("contract search failed: %v", err))
		return
	}

	for _, dto := range results {
		if dto.SecType != string(eventmodels.SecurityTypeStock) || !strings.EqualFold(dto.Symbol, contract.Symbol.String()) {
			continue
		}

		conID, err := dto.ConID.Int64()
		if err != nil {
			continue
		}

		resolved := contract
		resolved.ConID = conID
		c.handler.OnContractDetails(id, resolved)
		break
	}

	c.handler.OnContractDetailsEnd(id)
}

type secdefInfoDTO struct {
	ConID        json.Number `json:"conid"`
	LocalSymbol  string      `json:"ticker"`
	Strike       json.Number `json:"strike"`
	Right        string      `json:"right"`
	MaturityDate string      `json:"maturityDate"`
}

type strikesDTO struct {
	Call []float64 `json:"call"`
	Put  []float64 `json:"put"`
}

// lookupChain enumerates every leg at the requested expiry. The gateway only
// admits a handful of lookups at a time, so the burst of info calls per
// chain stays bounded by the pool.
func (c *IBPortalClient) lookupChain(id eventmodels.RequestID, contract eventmodels.Contract) {
	underlyingConID, err := c.resolveConID(contract.Symbol)
	if err != nil {
		c.handler.OnRequestError(id, 0, fmt.Sprintf("chain lookup failed: %v", err))
		return
	}

	month := expiryToMonth(contract.Expiry)
	endpoint := fmt.Sprintf("%s/iserver/secdef/strikes?conid=%d&sectype=OPT&month=%s", c.baseURL, underlyingConID, month)

	var strikes strikesDTO
	if err := c.getJSON(endpoint, &strikes); err != nil {
		c.handler.OnRequestError(id, 0, fmt.Sprintf("strikes lookup failed: %v", err))
		return
	}

	c.emitLegs(id, contract, underlyingConID, month, strikes.Call, eventmodels.RightCall)
	c.emitLegs(id, contract, underlyingConID, month, strikes.Put, eventmodels.RightPut)

	c.handler.OnContractDetailsEnd(id)
}

func (c *IBPortalClient) emitLegs(id eventmodels.RequestID, contract eventmodels.Contract, underlyingConID int64, month string, strikes []float64, right eventmodels.OptionRight) {
	for _, strike := range strikes {
		endpoint := fmt.Sprintf("%s/iserver/secdef/info?conid=%d&sectype=OPT&month=%s&strike=%s&right=%s",
			c.baseURL, underlyingConID, month, strconv.FormatFloat(strike, 'f', -1, 64), right)

		var infos []secdefInfoDTO
		if err := c.getJSON(endpoint, &infos); err != nil {
			log.Warnf("IBPortalClient: no secdef info for %s %s %.2f%s: %v", contract.Symbol, month, strike, right, err)
			continue
		}

		for _, info := range infos {
			if info.MaturityDate != contract.Expiry {
				continue
			}

			conID, err := info.ConID.Int64()
			if err != nil {
				continue
			}

			leg := eventmodels.Contract{
				Symbol:      contract.Symbol,
				SecType:     eventmodels.SecurityTypeOption,
				Currency:    contract.Currency,
				Exchange:    contract.Exchange,
				Expiry:      contract.Expiry,
				Strike:      strike,
				Right:       right,
				LocalSymbol: info.LocalSymbol,
				ConID:       conID,
			}

			if leg.LocalSymbol == "" {
				leg.LocalSymbol = fmt.Sprintf("%s %s%s%s", contract.Symbol, contract.Expiry, right, strconv.FormatFloat(strike, 'f', -1, 64))
			}

			c.handler.OnContractDetails(id, leg)
		}
	}
}

func (c *IBPortalClient) resolveConID(symbol eventmodels.StockSymbol) (int64, error) {
	endpoint := fmt.Sprintf("%s/iserver/secdef/search?symbol=%s", c.baseURL, url.QueryEscape(symbol.String()))

	var results []secdefSearchDTO
	if err := c.getJSON(endpoint, &results); err != nil {
		return 0, err
	}

	for _, dto := range results {
		if dto.SecType == string(eventmodels.SecurityTypeStock) && strings.EqualFold(dto.Symbol, symbol.String()) {
			return dto.ConID.Int64()
		}
	}

	return 0, fmt.Errorf("no stock contract found for %s", symbol)
}

// --- history ---

type historyBarDTO struct {
	T int64   `json:"t"`
	O float64 `json:"o"`
	H float64 `json:"h"`
	L float64 `json:"l"`
	C float64 `json:"c"`
}

type historyDTO struct {
	Data []historyBarDTO `json:"data"`
}

func (c *IBPortalClient) fetchHistory(id eventmodels.RequestID, contract eventmodels.Contract, window marketdata.HistoryWindow) {
	endpoint := fmt.Sprintf("%s/hmds/history?conid=%d&period=%s&bar=%s&outsideRth=%t",
		c.baseURL, contract.ConID, portalPeriod(window.Duration), portalBarSize(window.BarSize), !window.UseRTH)

	var history historyDTO
	if err := c.getJSON(endpoint, &history); err != nil {
		c.handler.OnRequestError(id, 0, fmt.Sprintf("history request failed: %v", err))
		return
	}

	for _, dto := range history.Data {
		ts := time.UnixMilli(dto.T).UTC()
		c.handler.OnHistoricalBar(id, eventmodels.HistoricalBar{
			Date:  ts.Format("20060102"),
			Time:  ts.Format("15:04:05"),
			Open:  dto.O,
			High:  dto.H,
			Low:   dto.L,
			Close: dto.C,
		})
	}

	c.handler.OnHistoryEnd(id)
}

// --- websocket quote stream ---

func (c *IBPortalClient) ensureConnected() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn, nil
	}

	u, err := url.Parse(c.wsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse websocket url: %w", err)
	}

	log.Infof("connecting to %s", u.String())

	dialer := *websocket.DefaultDialer
	dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}

	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to websocket server: %w", err)
	}

	c.conn = conn

	go c.readLoop(conn)

	return conn, nil
}

func (c *IBPortalClient) readLoop(conn *websocket.Conn) {
	for {
		conn.SetReadDeadline(time.Now().UTC().Add(60 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Errorf("IBPortalClient: ReadMessage(): %v", err)

			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()

			conn.Close()
			return
		}

		c.handleStreamMessage(message)
	}
}

func (c *IBPortalClient) handleStreamMessage(message []byte) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(message, &raw); err != nil {
		log.Errorf("IBPortalClient: failed to unmarshal stream message: %v", err)
		return
	}

	var topic string
	if topicRaw, ok := raw["topic"]; ok {
		json.Unmarshal(topicRaw, &topic)
	}

	// system and sts messages carry no market data
	if topic == "" || topic == "system" || topic == "sts" {
		return
	}

	if !strings.HasPrefix(topic, "smd+") {
		log.Debugf("IBPortalClient: unknown topic: %s", topic)
		return
	}

	conID, err := strconv.ParseInt(strings.TrimPrefix(topic, "smd+"), 10, 64)
	if err != nil {
		log.Warnf("IBPortalClient: unparseable smd topic %s", topic)
		return
	}

	c.mu.Lock()
	id, ok := c.reqByConID[conID]
	c.mu.Unlock()

	if !ok {
		// stale: subscription already cancelled
		return
	}

	if errRaw, hasErr := raw["error"]; hasErr {
		var errMsg string
		json.Unmarshal(errRaw, &errMsg)

		var code int
		if codeRaw, hasCode := raw["code"]; hasCode {
			json.Unmarshal(codeRaw, &code)
		}

		c.handler.OnRequestError(id, code, errMsg)
		return
	}

	greeks, hasGreeks := eventmodels.Greeks{}, false

	for code, field := range portalFieldCodes {
		valueRaw, has := raw[code]
		if !has {
			continue
		}

		value, parseErr := parsePortalNumber(valueRaw)
		if parseErr != nil {
			continue
		}

		switch field {
		case eventmodels.TickFieldDelta:
			greeks.Delta, hasGreeks = value, true
		case eventmodels.TickFieldGamma:
			greeks.Gamma, hasGreeks = value, true
		case eventmodels.TickFieldVega:
			greeks.Vega, hasGreeks = value, true
		case eventmodels.TickFieldTheta:
			greeks.Theta, hasGreeks = value, true
		case eventmodels.TickFieldIV:
			greeks.ImpliedVol, hasGreeks = value, true
		default:
			c.handler.OnTickPrice(id, field, value)
		}
	}

	if hasGreeks {
		c.handler.OnOptionComputation(id, greeks)
	}
}

// parsePortalNumber handles the stream's habit of sending numbers as either
// JSON numbers or quoted strings (with a leading "C" marker on closes).
func parsePortalNumber(raw json.RawMessage) (float64, error) {
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber, nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0, fmt.Errorf("parsePortalNumber: not a number or string")
	}

	asString = strings.TrimPrefix(asString, "C")

	return strconv.ParseFloat(asString, 64)
}

func (c *IBPortalClient) getJSON(endpoint string, out interface{}) error {
	res, err := c.client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("IBPortalClient:getJSON(): request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("IBPortalClient:getJSON(): unexpected status %s", res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("IBPortalClient:getJSON(): failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("IBPortalClient:getJSON(): failed to parse response body: %w", err)
	}

	return nil
}

// expiryToMonth converts YYYYMMDD to the MMMYY month token the portal uses.
func expiryToMonth(expiry string) string {
	t, err := time.Parse("20060102", expiry)
	if err != nil {
		return expiry
	}

	return strings.ToUpper(t.Format("Jan06"))
}

func portalPeriod(duration string) string {
	switch strings.ToUpper(strings.TrimSpace(duration)) {
	case "3 Y":
		return "3y"
	case "1 Y":
		return "1y"
	default:
		return strings.ReplaceAll(strings.ToLower(duration), " ", "")
	}
}

func portalBarSize(barSize string) string {
	switch strings.ToLower(strings.TrimSpace(barSize)) {
	case "1 day":
		return "1d"
	case "5 mins":
		return "5min"
	default:
		return strings.ReplaceAll(strings.ToLower(barSize), " ", "")
	}
}
