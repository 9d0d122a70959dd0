// Command gcalauth grants the pet read-only access to a Google Calendar.
//
// It prints the consent URL (and a QR code of it), waits for Google to redirect back
// to a loopback listener, and writes the resulting token to GOOGLE_TOKEN_FILE. On a
// headless machine paste the code, or the whole redirected URL, into stdin instead.
//
// Usage:
//
//	go run ./cmd/gcalauth
//	go run ./cmd/gcalauth -list 5
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/omriShneor/project_gochi/internal/config"
	"github.com/omriShneor/project_gochi/internal/gcal"
	"github.com/omriShneor/project_gochi/internal/logging"
)

const consentTimeout = 5 * time.Minute

func main() {
	list := flag.Int("list", 0, "print up to N upcoming events after authorizing")
	port := flag.Int("port", 0, "loopback port for the OAuth redirect (0 picks a free one)")
	qrPath := flag.String("qr", "", "also write the consent URL QR code as a PNG to this path")
	force := flag.Bool("force", false, "run the consent flow even if a token already exists")
	flag.Parse()

	cfg := config.LoadFromEnv()
	logger := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Output: os.Stderr})

	client, err := gcal.NewClient(cfg.GoogleCredentialsFile, cfg.GoogleTokenFile,
		gcal.WithTimeout(cfg.CalendarTimeout),
		gcal.WithLogger(logger),
	)
	if err != nil {
		fatal("loading credentials", err)
	}

	if *force || !client.IsAuthenticated() {
		if err := authorize(client, *port, *qrPath); err != nil {
			fatal("authorizing", err)
		}
		fmt.Printf("Saved credentials to %s\n", cfg.GoogleTokenFile)
	} else {
		fmt.Printf("Already authorized (%s)\n", cfg.GoogleTokenFile)
	}

	if *list > 0 {
		if err := listEvents(client, *list, cfg.CalendarTimeout); err != nil {
			fatal("fetching events", err)
		}
	}
}

func authorize(client *gcal.Client, port int, qrPath string) error {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("failed to open loopback listener: %w", err)
	}
	redirectURI := fmt.Sprintf("http://%s/", listener.Addr().String())

	state, err := randomState()
	if err != nil {
		return err
	}
	authURL := client.GetAuthURLWithRedirect(redirectURI, state)

	fmt.Println("Open this URL to grant calendar access:")
	fmt.Println()
	fmt.Println(authURL)
	fmt.Println()
	printQR(authURL, qrPath)
	fmt.Println("Waiting for the redirect, or paste the code here:")

	codes := make(chan string, 2)
	errs := make(chan error, 2)

	srv := &http.Server{Handler: callbackHandler(state, codes, errs)}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	go readPastedCode(codes)

	ctx, cancel := context.WithTimeout(context.Background(), consentTimeout)
	defer cancel()

	var code string
	select {
	case code = <-codes:
	case err = <-errs:
	case <-ctx.Done():
		err = errors.New("timed out waiting for authorization")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	if err != nil {
		return err
	}
	return client.ExchangeCodeWithRedirect(ctx, code, redirectURI)
}

func callbackHandler(state string, codes chan<- string, errs chan<- error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if msg := q.Get("error"); msg != "" {
			http.Error(w, "Authorization failed: "+msg, http.StatusBadRequest)
			select {
			case errs <- fmt.Errorf("consent denied: %s", msg):
			default:
			}
			return
		}
		code := q.Get("code")
		if code == "" {
			http.NotFound(w, r)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Authorization complete. You can close this tab.")
		select {
		case codes <- code:
		default:
		}
	})
}

// readPastedCode accepts either the bare code or the full redirected URL
func readPastedCode(codes chan<- string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if code := codeFromInput(scanner.Text()); code != "" {
			codes <- code
			return
		}
	}
}

func codeFromInput(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "code=") {
		return input
	}
	if u, err := url.Parse(input); err == nil {
		if code := u.Query().Get("code"); code != "" {
			return code
		}
	}
	if values, err := url.ParseQuery(strings.TrimPrefix(input, "?")); err == nil {
		return values.Get("code")
	}
	return ""
}

func printQR(content, pngPath string) {
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not build QR code: %v\n", err)
		return
	}
	fmt.Println(qr.ToSmallString(false))

	if pngPath == "" {
		return
	}
	if err := qr.WriteFile(512, pngPath); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save QR code PNG: %v\n", err)
		return
	}
	fmt.Printf("QR code saved to %s\n", pngPath)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func listEvents(client *gcal.Client, n int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	events, err := client.UpcomingEvents(ctx, n)
	if err != nil {
		return err
	}

	fmt.Printf("Got %d events\n", len(events))
	for _, ev := range events {
		fmt.Println("-", ev)
	}
	return nil
}

func fatal(context string, err error) {
	fmt.Fprintf(os.Stderr, "Error %s: %v\n", context, err)
	os.Exit(1)
}
