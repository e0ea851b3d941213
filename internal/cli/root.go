package cli

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/julianstephens/ember/internal/app"
	"github.com/julianstephens/ember/internal/constants"
	apperrors "github.com/julianstephens/ember/internal/errors"
	"github.com/julianstephens/ember/internal/profile"
	"github.com/julianstephens/ember/internal/storage"
)

type Context struct {
	App   *app.App
	Store storage.Provider
	Stdin io.Reader
}

// NewContext builds the command context around a; Store is nil for the REST backend
func NewContext(a *app.App) *Context {
	return &Context{App: a, Store: a.Provider, Stdin: os.Stdin}
}

// RequireStore returns the local database or explains why there is none
func (c *Context) RequireStore() (storage.Provider, error) {
	if c.Store == nil {
		backend := constants.BackendREST
		if c.App != nil {
			backend = c.App.Config.Backend
		}
		return nil, fmt.Errorf("this command needs a local database (backend sqlite or postgres), current backend is %s", backend)
	}
	return c.Store, nil
}

// ReadLine reads one trimmed line from the context's stdin
func (c *Context) ReadLine() (string, error) {
	in := c.Stdin
	if in == nil {
		in = os.Stdin
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Money formats amount in the profile currency for the configured locale
func (c *Context) Money(amount float64, currency string) string {
	locale := c.App.Config.Locale
	if currency == "" {
		currency = profile.DefaultCurrency(locale)
	}
	return profile.FormatAmount(amount, currency, locale)
}

// ParseQuitDate accepts "now", a date (YYYY-MM-DD, local midnight) or an RFC 3339 timestamp
func ParseQuitDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "now":
		return now, nil
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(constants.DateTimeFormat, s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(constants.DateFormat, s, now.Location()); err == nil {
		return t, nil
	}
	return time.Time{}, apperrors.Invalid("quit date %q must be 'now', %s, %s or RFC 3339", s, constants.DateFormat, constants.DateTimeFormat)
}

// FormatElapsed renders a duration as days, hours and minutes
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// FormatLifeRegained renders minutes of life regained in the largest sensible unit
func FormatLifeRegained(minutes float64) string {
	switch {
	case minutes >= 24*60:
		return fmt.Sprintf("%.1f days", minutes/(24*60))
	case minutes >= 60:
		return fmt.Sprintf("%.1f hours", minutes/60)
	default:
		return fmt.Sprintf("%d minutes", int(math.Floor(minutes)))
	}
}
