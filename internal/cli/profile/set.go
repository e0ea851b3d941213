package profile

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/ember/internal/cli"
	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/models"
	userprofile "github.com/julianstephens/ember/internal/profile"
)

type SetCmd struct {
	QuitDate      string   `help:"When you quit: 'now', 'today', YYYY-MM-DD, 'YYYY-MM-DD HH:MM' or RFC 3339."`
	PerDay        *int     `help:"Cigarettes smoked per day before quitting."`
	Price         *float64 `help:"Price of a pack of 20."`
	Currency      string   `help:"ISO 4217 currency code for the price (defaults to the locale's currency)."`
	ResetQuitDate bool     `help:"Replace the quit date of an existing profile."`
	NoInput       bool     `help:"Never prompt; fail if required values are missing."`
}

func (c *SetCmd) Validate() error {
	if c.PerDay != nil && *c.PerDay <= 0 {
		return errors.New("--per-day must be greater than zero")
	}
	if c.Price != nil && *c.Price <= 0 {
		return errors.New("--price must be greater than zero")
	}
	return nil
}

func (c *SetCmd) Run(ctx *cli.Context) error {
	a := ctx.App
	if _, err := a.RequireUser(); err != nil {
		return err
	}

	bg := context.Background()
	existing, err := a.Session.LoadProfile(bg)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	upd, err := c.update(ctx, existing)
	if err != nil {
		return err
	}

	p, err := a.Session.UpsertProfile(bg, upd)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	if existing != nil && c.QuitDate != "" && !c.ResetQuitDate && !p.QuitAt.Equal(upd.QuitAt) {
		fmt.Println("ℹ Kept the existing quit date; pass --reset-quit-date to replace it.")
	}
	fmt.Printf("✓ Profile saved (quit %s, %d per day, %s per pack)\n",
		p.QuitAt.Local().Format(constants.DateTimeFormat),
		p.DailyConsumption,
		ctx.Money(p.UnitPrice, p.CurrencyOr("")),
	)
	return nil
}

// update merges the flags over the existing profile and prompts for
// whatever a new profile still lacks
func (c *SetCmd) update(ctx *cli.Context, existing *models.Profile) (models.ProfileUpdate, error) {
	now := ctx.App.Clock.Now()
	upd := models.ProfileUpdate{ResetQuitAt: c.ResetQuitDate}
	if existing != nil {
		upd.QuitAt = existing.QuitAt
		upd.DailyConsumption = existing.DailyConsumption
		upd.UnitPrice = existing.UnitPrice
		upd.Currency = existing.Currency
	}

	quitDate := c.QuitDate
	perDay := ""
	price := ""
	currency := c.Currency
	if c.PerDay != nil {
		perDay = strconv.Itoa(*c.PerDay)
	}
	if c.Price != nil {
		price = strconv.FormatFloat(*c.Price, 'f', -1, 64)
	}

	needsPrompt := existing == nil && (c.PerDay == nil || c.Price == nil)
	if needsPrompt {
		if c.NoInput {
			return upd, errors.New("a new profile needs --per-day and --price")
		}
		if quitDate == "" {
			quitDate = "now"
		}
		if currency == "" {
			currency = userprofile.DefaultCurrency(ctx.App.Config.Locale)
		}
		if err := promptProfile(&quitDate, &perDay, &price, &currency); err != nil {
			return upd, err
		}
	}

	if quitDate != "" || existing == nil {
		t, err := cli.ParseQuitDate(quitDate, now)
		if err != nil {
			return upd, err
		}
		upd.QuitAt = t
	}
	if perDay != "" {
		n, err := strconv.Atoi(strings.TrimSpace(perDay))
		if err != nil {
			return upd, fmt.Errorf("cigarettes per day must be a whole number: %w", err)
		}
		upd.DailyConsumption = n
	}
	if price != "" {
		f, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
		if err != nil {
			return upd, fmt.Errorf("price must be a number: %w", err)
		}
		upd.UnitPrice = f
	}
	if currency != "" {
		code, err := userprofile.ParseCurrency(currency)
		if err != nil {
			return upd, err
		}
		upd.Currency = &code
	}
	return upd, userprofile.Validate(upd)
}

func promptProfile(quitDate, perDay, price, currency *string) error {
	positive := func(parse func(string) (float64, error)) func(string) error {
		return func(s string) error {
			v, err := parse(strings.TrimSpace(s))
			if err != nil || v <= 0 {
				return errors.New("enter a number greater than zero")
			}
			return nil
		}
	}
	asInt := func(s string) (float64, error) {
		n, err := strconv.Atoi(s)
		return float64(n), err
	}
	asFloat := func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("When did you quit?").
				Description(fmt.Sprintf("'now', %s or %s", constants.DateFormat, constants.DateTimeFormat)).
				Value(quitDate),
			huh.NewInput().
				Title("Cigarettes per day").
				Value(perDay).
				Validate(positive(asInt)),
			huh.NewInput().
				Title("Price per pack").
				Value(price).
				Validate(positive(asFloat)),
			huh.NewInput().
				Title("Currency").
				Value(currency).
				Validate(func(s string) error {
					_, err := userprofile.ParseCurrency(s)
					return err
				}),
		),
	).Run()
}
