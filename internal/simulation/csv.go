package simulation

import (
	"encoding/csv"
	"os"
	"strconv"

	"lec-market/internal/model"
)

// WriteRecordsCSV writes a record stream to path.
func WriteRecordsCSV(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sink := NewCSVSink(f)
	for _, r := range records {
		if err := sink.Write(r); err != nil {
			return err
		}
	}
	return sink.Flush()
}

// WriteClearingCSV writes the raw clearing stream, one row per fill leg.
func WriteClearingCSV(path string, results []model.ClearingResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"period",
		"resource",
		"trade_id",
		"agent_id",
		"side",
		"counterparty",
		"quantity",
		"price",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range results {
		row := []string{
			strconv.Itoa(r.Period),
			string(r.Resource),
			strconv.Itoa(r.TradeID),
			r.AgentID,
			string(r.Side),
			string(r.Counterparty),
			fmtFloat(r.Quantity),
			fmtFloat(r.Price),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
