package backtest

import (
	"encoding/csv"
	"os"

	"equity-backtest/internal/model"
)

func WriteTradesCSV(path string, trades []model.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"date",
		"symbol",
		"direction",
		"volume",
		"price",
		"commission",
		"slippage",
		"pnl",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range trades {
		row := []string{
			t.Date.Format(model.DateFormat),
			t.Symbol,
			string(t.Direction),
			t.Volume.String(),
			t.Price.String(),
			t.Commission.String(),
			t.Slippage.String(),
			t.PnL.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func WriteReturnsCSV(path string, returns []model.DailyReturn) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"date", "return"}); err != nil {
		return err
	}

	for _, r := range returns {
		row := []string{
			r.Date.Format(model.DateFormat),
			r.Return.String(),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}
