// cartclient is a CLI tool for exercising the gateway's cart and checkout flow.
// Each command performs a single operation, making it composable for scripts.
//
// Commands:
//
//	cartclient nonce -gateway URL
//	cartclient add -gateway URL -session ID -nonce N -product ID [-qty N] [-m2 X]
//	cartclient get -gateway URL -session ID
//	cartclient checkout -gateway URL -session ID [-nonce N] [-note TEXT]
//	cartclient pay -gateway URL -order ID [-method bank] [-session ID]
//
// Examples:
//
//	read SID NONCE < <(cartclient nonce -gateway http://localhost:8080 -q)
//	cartclient add -session $SID -nonce $NONCE -product 60 -qty 4 -m2 1.44
//	ORDER=$(cartclient checkout -session $SID -nonce $NONCE -q)
//	cartclient pay -order $ORDER -session $SID
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Long enough for the gateway's simulated payment delay.
var client = &http.Client{Timeout: 60 * time.Second}

// Global flags (apply to all commands)
var (
	gatewayURL string
	quiet      bool
	noColor    bool
	verbose    bool
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "nonce":
		runNonce(args)
	case "add":
		runAdd(args)
	case "get":
		runGet(args)
	case "checkout":
		runCheckout(args)
	case "shipping":
		runShipping(args)
	case "pay":
		runPay(args)
	case "-h", "-help", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `cartclient - storefront gateway cart flow test tool

Usage:
  cartclient <command> [options]

Commands:
  nonce     Start a store cart session and print its id and nonce
  add       Add a product to the store cart
  get       Show the store cart
  checkout  Create or update the session's order with test addresses
  shipping  List shipping methods for the session's order
  pay       Pay for an order

Examples:
  # Start a session
  read SID NONCE < <(cartclient nonce -gateway http://localhost:8080 -q)

  # Add four tiles covering 1.44 m2
  cartclient add -session "$SID" -nonce "$NONCE" -product 60 -qty 4 -m2 1.44

  # Turn the cart into an order and capture its id
  ORDER=$(cartclient checkout -session "$SID" -nonce "$NONCE" -q)

  # See what delivery costs to Leeds
  cartclient shipping -session "$SID" -postcode "LS1 4AP"

  # Pay with the test card
  cartclient pay -order "$ORDER" -session "$SID"

Run 'cartclient <command> -h' for command-specific options.
`)
}

// commonFlags registers the flags every command accepts.
func commonFlags(fs *flag.FlagSet) {
	fs.StringVar(&gatewayURL, "gateway", "http://localhost:8080", "Gateway base URL")
	fs.BoolVar(&quiet, "q", false, "Quiet mode - only output the result")
	fs.BoolVar(&noColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&verbose, "v", false, "Verbose - show full request/response")
}

func parse(fs *flag.FlagSet, usage string, args []string) {
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cartclient %s [options]\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	fs.Parse(args)

	if noColor {
		disableColors()
	}
}

// =============================================================================
// NONCE COMMAND
// =============================================================================

func runNonce(args []string) {
	fs := flag.NewFlagSet("nonce", flag.ExitOnError)
	commonFlags(fs)
	var sessionID string
	fs.StringVar(&sessionID, "session", "", "Existing session ID to refresh")
	parse(fs, "nonce", args)

	resp, err := doRequest("GET", "/store-cart/nonce", sessionHeaders(sessionID, ""), nil)
	if err != nil {
		fatal("Failed to get nonce: %v", err)
	}

	sid, _ := resp["session_id"].(string)
	nonce, _ := resp["nonce"].(string)
	if quiet {
		fmt.Println(sid, nonce)
		return
	}
	printSuccess("Session ready")
	fmt.Printf("  Session: %s%s%s\n", colorCyan, sid, colorReset)
	fmt.Printf("  Nonce:   %s%s%s\n", colorCyan, nonce, colorReset)
}

// =============================================================================
// ADD COMMAND
// =============================================================================

func runAdd(args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	commonFlags(fs)
	var sessionID, nonce string
	var productID, quantity int
	var m2 float64
	var variations string
	fs.StringVar(&sessionID, "session", "", "Session ID")
	fs.StringVar(&nonce, "nonce", "", "Store API nonce")
	fs.IntVar(&productID, "product", 0, "Product ID (required)")
	fs.IntVar(&quantity, "qty", 1, "Quantity")
	fs.Float64Var(&m2, "m2", 0, "Area covered in square metres (0 = omit)")
	fs.StringVar(&variations, "variation", "", "Variation attributes as attr=value,attr=value")
	parse(fs, "add -product ID", args)

	if productID <= 0 {
		fs.Usage()
		os.Exit(1)
	}

	reqBody := map[string]interface{}{
		"id":       productID,
		"quantity": quantity,
	}
	if m2 > 0 {
		reqBody["m2_quantity"] = m2
	}
	if attrs := parseVariations(variations); len(attrs) > 0 {
		reqBody["variation"] = attrs
	}

	resp, err := doRequest("POST", "/store-cart/add-item", sessionHeaders(sessionID, nonce), reqBody)
	if err != nil {
		fatal("Failed to add item: %v", err)
	}

	sid, _ := resp["session_id"].(string)
	if quiet {
		fmt.Println(sid)
		return
	}
	printSuccess("Item added")
	fmt.Printf("  Session: %s%s%s\n", colorCyan, sid, colorReset)
	printCartSummary(resp)
}

func parseVariations(s string) []map[string]string {
	var out []map[string]string
	for _, pair := range strings.Split(s, ",") {
		attr, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || attr == "" {
			continue
		}
		out = append(out, map[string]string{"attribute": attr, "value": value})
	}
	return out
}

// =============================================================================
// GET COMMAND
// =============================================================================

func runGet(args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	commonFlags(fs)
	var sessionID string
	fs.StringVar(&sessionID, "session", "", "Session ID (required)")
	parse(fs, "get -session ID", args)

	if sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	resp, err := doRequest("GET", "/store-cart", sessionHeaders(sessionID, ""), nil)
	if err != nil {
		fatal("Failed to get cart: %v", err)
	}

	if quiet {
		fmt.Println(cartItemCount(resp))
		return
	}
	printSuccess("Cart retrieved")
	printCartSummary(resp)
}

// =============================================================================
// CHECKOUT COMMAND
// =============================================================================

func runCheckout(args []string) {
	fs := flag.NewFlagSet("checkout", flag.ExitOnError)
	commonFlags(fs)
	var sessionID, nonce, note string
	fs.StringVar(&sessionID, "session", "", "Session ID (required)")
	fs.StringVar(&nonce, "nonce", "", "Store API nonce")
	fs.StringVar(&note, "note", "", "Customer note")
	parse(fs, "checkout -session ID", args)

	if sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	billing := testAddress()
	billing["email"] = "buyer@example.com"
	billing["phone"] = "+447700900123"

	reqBody := map[string]interface{}{
		"billing":  billing,
		"shipping": testAddress(),
	}
	if note != "" {
		reqBody["customer_note"] = note
	}

	resp, err := doRequest("POST", "/checkout", sessionHeaders(sessionID, nonce), reqBody)
	if err != nil {
		fatal("Checkout failed: %v", err)
	}

	order, _ := resp["order"].(map[string]interface{})
	if quiet {
		fmt.Println(jsonString(order["id"]))
		return
	}
	msg, _ := resp["message"].(string)
	printSuccess("%s", msg)
	printOrder(order)
}

func testAddress() map[string]interface{} {
	return map[string]interface{}{
		"first_name": "Test",
		"last_name":  "Buyer",
		"address_1":  "10 Downing Street",
		"city":       "London",
		"postcode":   "SW1A 2AA",
		"country":    "GB",
	}
}

// =============================================================================
// SHIPPING COMMAND
// =============================================================================

func runShipping(args []string) {
	fs := flag.NewFlagSet("shipping", flag.ExitOnError)
	commonFlags(fs)
	var orderID int
	var sessionID, country, state, postcode, city string
	fs.IntVar(&orderID, "order", 0, "Order ID (defaults to the session's order)")
	fs.StringVar(&sessionID, "session", "", "Session ID")
	fs.StringVar(&country, "country", "GB", "Destination country code")
	fs.StringVar(&state, "state", "", "Destination state code")
	fs.StringVar(&postcode, "postcode", "", "Destination postcode")
	fs.StringVar(&city, "city", "", "Destination city")
	parse(fs, "shipping -session ID | -order ID", args)

	if orderID <= 0 && sessionID == "" {
		fs.Usage()
		os.Exit(1)
	}

	reqBody := map[string]interface{}{
		"country":  country,
		"state":    state,
		"postcode": postcode,
		"city":     city,
	}
	if orderID > 0 {
		reqBody["orderId"] = orderID
	}

	resp, err := doRequest("POST", "/shipping/methods", sessionHeaders(sessionID, ""), reqBody)
	if err != nil {
		fatal("Shipping lookup failed: %v", err)
	}

	methods, _ := resp["shipping_methods"].([]interface{})
	if !quiet {
		zone, _ := resp["zone"].(string)
		if zone == "" {
			zone = "none"
		}
		printSuccess("%d shipping methods (zone: %s)", len(methods), zone)
	}
	for _, m := range methods {
		method, _ := m.(map[string]interface{})
		fmt.Printf("  %-30s %10s  %s:%s\n", method["title"], method["cost"], method["method_id"], jsonString(method["instance_id"]))
	}
}

// =============================================================================
// PAY COMMAND
// =============================================================================

func runPay(args []string) {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	commonFlags(fs)
	var orderID int
	var method, sessionID, cardNumber string
	fs.IntVar(&orderID, "order", 0, "Order ID (required)")
	fs.StringVar(&method, "method", "bank", "Payment method")
	fs.StringVar(&sessionID, "session", "", "Session ID to close after payment")
	fs.StringVar(&cardNumber, "card", "4242424242424242", "Card number for card payments")
	parse(fs, "pay -order ID", args)

	if orderID <= 0 {
		fs.Usage()
		os.Exit(1)
	}

	reqBody := map[string]interface{}{
		"orderId":       orderID,
		"paymentMethod": method,
	}
	if method == "bank" {
		reqBody["cardDetails"] = map[string]interface{}{
			"cardNumber":  cardNumber,
			"cardHolder":  "Test Buyer",
			"expiryMonth": 12,
			"expiryYear":  time.Now().Year() + 2,
			"cvc":         "123",
		}
	}

	resp, err := doRequest("POST", "/cart/process-payment", sessionHeaders(sessionID, ""), reqBody)
	if err != nil {
		fatal("Payment failed: %v", err)
	}

	order, _ := resp["order"].(map[string]interface{})
	if quiet {
		fmt.Println(order["status"])
		return
	}
	printSuccess("Payment completed!")
	printOrder(order)
}

// =============================================================================
// HTTP HELPERS
// =============================================================================

func sessionHeaders(sessionID, nonce string) map[string]string {
	h := map[string]string{}
	if sessionID != "" {
		h["X-Session-Id"] = sessionID
	}
	if nonce != "" {
		h["Nonce"] = nonce
	}
	return h
}

func doRequest(method, path string, headers map[string]string, body interface{}) (map[string]interface{}, error) {
	var reqBody io.Reader
	var reqJSON []byte

	if body != nil {
		var err error
		reqJSON, err = json.MarshalIndent(body, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reqBody = bytes.NewReader(reqJSON)
	}

	req, err := http.NewRequest(method, strings.TrimSuffix(gatewayURL, "/")+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	if !quiet {
		printRequest(method, path, reqJSON)
	}

	start := time.Now()
	resp, err := client.Do(req)
	duration := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if !quiet {
		printResponse(resp.StatusCode, respBody, duration)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if e, ok := result["error"].(map[string]interface{}); ok {
			return nil, fmt.Errorf("HTTP %d %v: %v", resp.StatusCode, e["code"], e["message"])
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return result, nil
}

// =============================================================================
// OUTPUT HELPERS
// =============================================================================

func printRequest(method, path string, body []byte) {
	fmt.Printf("\n%s▶ REQUEST%s %s%s %s%s\n", colorYellow, colorReset, colorBold, method, path, colorReset)
	if body != nil {
		printJSON(body, "  ")
	}
}

func printResponse(status int, body []byte, duration time.Duration) {
	statusColor := colorGreen
	if status >= 400 {
		statusColor = colorRed
	}
	fmt.Printf("\n%s◀ RESPONSE%s %s%d%s (%v)\n", colorCyan, colorReset, statusColor, status, colorReset, duration)
	printJSON(body, "  ")
}

func printJSON(data []byte, prefix string) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, prefix, "  "); err != nil {
		fmt.Printf("%s%s\n", prefix, string(data))
		return
	}

	output := pretty.String()
	if !verbose {
		lines := strings.Split(output, "\n")
		if len(lines) > 30 {
			lines = append(lines[:25], fmt.Sprintf("%s  %s(%d more lines, use -v for full output)%s", prefix, colorGray, len(lines)-25, colorReset))
			output = strings.Join(lines, "\n")
		}
	}
	fmt.Println(output)
}

// printCartSummary lists the Store API cart items and total.
func printCartSummary(resp map[string]interface{}) {
	cart, ok := resp["cart"].(map[string]interface{})
	if !ok {
		return
	}
	if items, ok := cart["items"].([]interface{}); ok {
		fmt.Printf("  %sItems:%s\n", colorYellow, colorReset)
		for _, it := range items {
			if item, ok := it.(map[string]interface{}); ok {
				fmt.Printf("    - %v x%v (key %v)\n", item["name"], item["quantity"], item["key"])
			}
		}
	}
	if totals, ok := cart["totals"].(map[string]interface{}); ok {
		fmt.Printf("  Total: %s%s%s\n", colorGreen, formatMinor(totals["total_price"], totals["currency_minor_unit"]), colorReset)
	}
}

func cartItemCount(resp map[string]interface{}) int {
	cart, _ := resp["cart"].(map[string]interface{})
	items, _ := cart["items"].([]interface{})
	return len(items)
}

func printOrder(order map[string]interface{}) {
	if order == nil {
		return
	}
	fmt.Printf("  Order ID: %s%s%s\n", colorCyan, jsonString(order["id"]), colorReset)
	fmt.Printf("  Status:   %v\n", order["status"])
	fmt.Printf("  Total:    %s%v %v%s\n", colorGreen, order["total"], order["currency"], colorReset)
}

// formatMinor renders a Store API price given in minor units.
func formatMinor(v, unit interface{}) string {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	digits := 2
	if u, ok := unit.(float64); ok {
		digits = int(u)
	}
	if digits == 0 || len(s) <= digits {
		return s
	}
	return s[:len(s)-digits] + "." + s[len(s)-digits:]
}

func jsonString(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%v", v)
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	os.Exit(1)
}
