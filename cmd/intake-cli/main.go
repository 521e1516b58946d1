// Command intake-cli watches applicants, reports and notifications of a
// relay server and prints them as their statuses change.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/pflag"
	"github.com/vrsandeep/intake-go/internal/channel"
	"github.com/vrsandeep/intake-go/internal/client"
	"github.com/vrsandeep/intake-go/internal/config"
	"github.com/vrsandeep/intake-go/internal/listview"
	"github.com/vrsandeep/intake-go/internal/models"
	"github.com/vrsandeep/intake-go/internal/selector"
	"github.com/vrsandeep/intake-go/internal/tracker"
)

type options struct {
	apiURL      string
	relayURL    string
	application string
	org         string
	user        string
	watch       string
	query       string
	sortKeys    []string
	refresh     time.Duration
	once        bool
	archived    bool
}

func parseFlags(cfg *config.Config, args []string) (options, error) {
	var o options
	fs := pflag.NewFlagSet("intake-cli", pflag.ContinueOnError)
	fs.StringVar(&o.apiURL, "api", cfg.API.URL, "relay API base URL")
	fs.StringVar(&o.relayURL, "relay", cfg.Relay.URL, "relay WebSocket base URL")
	fs.StringVarP(&o.application, "application", "a", "", "only this application id")
	fs.StringVar(&o.org, "org", "", "only this organization id")
	fs.StringVarP(&o.user, "user", "u", "", "watch notifications of this user id")
	fs.StringVarP(&o.watch, "watch", "w", "all", "what to watch: applicants, reports or all")
	fs.StringVarP(&o.query, "query", "q", "", "search query applied to the printed lists")
	fs.StringSliceVarP(&o.sortKeys, "sort", "s", nil, "sort key; repeat a key to sort descending")
	fs.DurationVar(&o.refresh, "refresh", time.Minute, "refetch interval, 0 disables")
	fs.BoolVar(&o.once, "once", false, "print the lists once and exit")
	fs.BoolVar(&o.archived, "archived", false, "list archived entities instead of active ones")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	switch o.watch {
	case "applicants", "reports", "all":
	default:
		return o, fmt.Errorf("unknown --watch value %q", o.watch)
	}
	return o, nil
}

// logNotifier prints failures that a UI would show in a modal.
type logNotifier struct{ message string }

func (n *logNotifier) SetMessage(message string) { n.message = message }
func (n *logNotifier) OpenModal()                { log.Printf("ERROR: %s", n.message) }

func main() {
	log.SetFlags(log.LstdFlags)
	os.Exit(run(os.Args[1:]))
}

// run watches until interrupted and returns the process exit code. With
// --once it prints a single snapshot and fails if any list could not be
// fetched.
func run(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}
	o, err := parseFlags(cfg, args)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Print(err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(o.apiURL, nil)
	if err := api.CheckVersion(ctx, cfg.API.VersionConstraint); err != nil {
		log.Printf("Relay at %s is not compatible: %v", o.apiURL, err)
		return 1
	}

	manager := channel.NewManager(channel.Options{
		BaseURL:        o.relayURL,
		ReconnectDelay: cfg.ReconnectDelay(),
		KeepAlive:      cfg.KeepAlive(),
	})
	defer manager.Shutdown()

	deps := tracker.Deps{
		Subscriber: manager,
		Notifier:   &logNotifier{},
		Debounce:   cfg.Debounce(),
		OnSync: func(kind models.ChannelKind, d selector.Delta) {
			log.Printf("%s subscriptions: +%v -%v", kind, d.ToOpen, d.ToClose)
		},
	}
	filter := client.Filter{ApplicationID: o.application, OrgID: o.org, Archived: &o.archived}

	var refreshers []func(context.Context) error
	var printers []func()
	if o.watch != "reports" {
		applicants := tracker.NewApplicants(tracker.FetchApplicants(api, filter), deps)
		defer applicants.Close()
		configureView(applicants.SetQuery, applicants.RequestSort, o)
		refreshers = append(refreshers, applicants.Refresh)
		printers = append(printers, func() { printApplicants(applicants.View()) })
	}
	if o.watch != "applicants" {
		reports := tracker.NewReports(tracker.FetchReports(api, filter), deps)
		defer reports.Close()
		configureView(reports.SetQuery, reports.RequestSort, o)
		refreshers = append(refreshers, reports.Refresh)
		printers = append(printers, func() { printReports(reports.View()) })
	}

	if err := refreshAll(ctx, refreshers, printers); err != nil && o.once {
		log.Printf("Snapshot incomplete: %v", err)
		return 1
	}
	if o.once {
		return 0
	}

	var inbox *tracker.Inbox
	if o.user != "" {
		inbox = tracker.NewInbox(o.user, tracker.FetchNotifications(api.ListNotifications, o.user), deps, func(n models.Notification) {
			fmt.Printf("[notification] %s\n", n.Message)
		})
		if err := inbox.Open(ctx); err != nil {
			log.Printf("Notifications unavailable: %v", err)
		}
		defer inbox.Close()
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if o.refresh > 0 {
		_, err := s.Every(o.refresh).WaitForSchedule().Do(func() {
			// Fetch failures already reached the notifier.
			_ = refreshAll(ctx, refreshers, printers)
			if inbox == nil {
				return
			}
			if reopened, err := inbox.Resubscribe(); err != nil {
				log.Printf("Notifications unavailable: %v", err)
			} else if reopened {
				log.Printf("Resubscribed to notifications of %s", o.user)
			}
		})
		if err != nil {
			log.Printf("Could not schedule refresh: %v", err)
			return 1
		}
	}
	// Reprint often enough to show pushed progress.
	if _, err := s.Every(2 * time.Second).WaitForSchedule().Do(func() {
		for _, p := range printers {
			p()
		}
	}); err != nil {
		log.Printf("Could not schedule printing: %v", err)
		return 1
	}
	s.StartAsync()
	defer s.Stop()

	<-ctx.Done()
	log.Println("Stopping watch.")
	return 0
}

// refreshAll refetches every list, prints them and returns the joined
// fetch errors.
func refreshAll(ctx context.Context, refreshers []func(context.Context) error, printers []func()) error {
	var errs []error
	for _, refresh := range refreshers {
		if err := refresh(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range printers {
		p()
	}
	return errors.Join(errs...)
}

func configureView(setQuery func(string), requestSort func(string) listview.SortConfig, o options) {
	if o.query != "" {
		setQuery(o.query)
	}
	for _, key := range o.sortKeys {
		requestSort(key)
	}
}
