package integration

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"egretail/internal/config"
	"egretail/internal/logger"
	"egretail/internal/mapping"
	"egretail/internal/models"
	"egretail/internal/pipeline"
	"egretail/internal/report"
	"egretail/internal/sink"
	"egretail/internal/validator"
	"egretail/pkg/metadata"
)

// rawOrders is a small extract with a duplicated id, a missing id, a USD
// price, Arabic text and mixed date formats.
var rawOrders = []map[string]string{
	{
		models.RawOrderID: "A1", models.RawOrderDate: "01/03/2024", models.RawDeliveryDate: "2024-03-04",
		models.RawCustomerID: "C1", models.RawCustomerName: "ahmed ali", models.RawGender: "M",
		models.RawPhone: "01012345678", models.RawEmail: "ahmed@example.com",
		models.RawGovernorate: "القاهرة", models.RawCity: "nasr city", models.RawAddress: "Building 5, Street 9",
		models.RawLatitude: "30.05", models.RawLongitude: "31.33",
		models.RawProductSKU: "SKU-1", models.RawProductName: "Laptop", models.RawCategory: "Electronics",
		models.RawUnitPrice: "1000", models.RawQuantity: "2", models.RawDiscount: "10%", models.RawCurrency: "EGP",
		models.RawShippingCost: "50", models.RawShipperName: "Aramex", models.RawChannel: "online",
		models.RawStatus: "Delivered", models.RawPaymentStatus: "paid", models.RawPaymentMethod: "Cash",
	},
	{
		models.RawOrderID: "A1", models.RawOrderDate: "5 March 2024", models.RawDeliveryDate: "2024-03-15",
		models.RawCustomerID: "C2", models.RawCustomerName: "mona", models.RawGender: "F",
		models.RawPhone: "12345", models.RawEmail: "not-an-email",
		models.RawGovernorate: "giza", models.RawCity: "dokki",
		models.RawProductSKU: "SKU-2", models.RawProductName: "Phone", models.RawCategory: "Electronics",
		models.RawUnitPrice: "20", models.RawQuantity: "1", models.RawCurrency: "USD",
		models.RawShipperName: "Aramex", models.RawChannel: "online",
		models.RawStatus: "Delivered", models.RawPaymentStatus: "unpaid", models.RawPaymentMethod: "Card",
	},
	{
		models.RawOrderDate: "2024-04-10", models.RawCustomerName: "sara",
		models.RawGovernorate: "cairo", models.RawProductName: "Laptop", models.RawCategory: "Electronics",
		models.RawUnitPrice: "900", models.RawQuantity: "1", models.RawChannel: "store",
		models.RawStatus: "Delivered", models.RawPaymentStatus: "paid",
	},
	{
		models.RawOrderID: "A4", models.RawOrderDate: "2024-04-12", models.RawDeliveryDate: "2024-04-14",
		models.RawCustomerID: "C1", models.RawCustomerName: "Ahmed Ali",
		models.RawGovernorate: "Cairo", models.RawProductSKU: "SKU-1", models.RawCategory: "Electronics",
		models.RawUnitPrice: "1000", models.RawQuantity: "1", models.RawCurrency: "EGP",
		models.RawShippingCost: "40", models.RawChannel: "online",
		models.RawStatus: "Delivered", models.RawPaymentStatus: "paid",
	},
}

func writeExtract(t *testing.T, dir string) {
	t.Helper()

	sheets := config.DefaultConfig().Input.Sheets

	write := func(name string, header []string, rows [][]string) {
		f, err := os.Create(filepath.Join(dir, name+".csv"))
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()

		w := csv.NewWriter(f)
		if err := w.WriteAll(append([][]string{header}, rows...)); err != nil {
			t.Fatal(err)
		}
	}

	rows := make([][]string, 0, len(rawOrders))
	for _, o := range rawOrders {
		row := make([]string, len(models.RequiredOrderColumns))
		for i, c := range models.RequiredOrderColumns {
			row[i] = o[c]
		}

		rows = append(rows, row)
	}

	write(sheets.Orders, models.RequiredOrderColumns, rows)
	write(sheets.Products, models.RequiredProductColumns, [][]string{
		{"SKU-1", "Laptop", "Electronics"},
		{"SKU-2", "Phone", "Electronics"},
		{"SKU-0", "Phone", "Electronics"},
	})
	write(sheets.Governorates, []string{"Governorate"}, [][]string{{"cairo"}, {"Giza "}, {"القاهرة"}})
	write(sheets.Customers, []string{"CustomerID", "CustomerName", "Phone"}, [][]string{{"C1", "Ahmed Ali", "01012345678"}})
}

func TestPipelineFlow(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeExtract(t, in)

	cfg := config.DefaultConfig()
	cfg.Input.Workbook = ""
	cfg.Input.CSVDir = in
	cfg.Output.Dir = out

	m, err := mapping.Default()
	if err != nil {
		t.Fatalf("mapping.Default() error = %v", err)
	}

	// 1. Clean
	outcome, err := pipeline.Execute(context.Background(), cfg, m, logger.Discard())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if outcome.Rows != len(rawOrders) {
		t.Errorf("Rows = %d, want %d", outcome.Rows, len(rawOrders))
	}

	if outcome.RunID == "" {
		t.Error("RunID is empty")
	}

	want := "normalize,identity,lookup,monetary,impute_geo,impute_shipping,totals,validate"
	if got := strings.Join(outcome.Result.Order, ","); got != want {
		t.Errorf("stage order = %s, want %s", got, want)
	}

	for _, name := range []string{
		cfg.Output.FullCSV, cfg.Output.BICSV, cfg.Output.FullXLSX, cfg.Output.BIXLSX,
		cfg.Output.SQLite, cfg.Output.QualityReport, cfg.Output.MetricsTextfile,
	} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	// 2. BI projection
	biPath := filepath.Join(out, cfg.Output.BICSV)

	f, err := os.Open(biPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	if strings.Join(records[0], ",") != strings.Join(sink.BIColumns, ",") {
		t.Errorf("BI header = %v", records[0])
	}

	if len(records)-1 != len(rawOrders) {
		t.Errorf("BI rows = %d, want %d", len(records)-1, len(rawOrders))
	}

	ids := map[string]bool{}
	for _, r := range records[1:] {
		ids[r[0]] = true
	}

	if len(ids) != len(rawOrders) {
		t.Errorf("order ids not unique: %v", ids)
	}

	if !ids["A4"] {
		t.Error("unique id A4 was not kept")
	}

	// 3. Audit database
	db, err := sql.Open("sqlite", filepath.Join(out, cfg.Output.SQLite))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + sink.TableAudit).Scan(&n); err != nil {
		t.Fatalf("count audit rows: %v", err)
	}

	if n != len(rawOrders) {
		t.Errorf("audit rows = %d, want %d", n, len(rawOrders))
	}

	var runID string
	if err := db.QueryRow("SELECT run_id FROM " + sink.TableRuns).Scan(&runID); err != nil {
		t.Fatalf("read run: %v", err)
	}

	if runID != outcome.RunID {
		t.Errorf("run_id = %q, want %q", runID, outcome.RunID)
	}

	// 4. Quality report
	data, err := os.ReadFile(filepath.Join(out, cfg.Output.QualityReport))
	if err != nil {
		t.Fatal(err)
	}

	var q validator.QualityReport
	if err := yaml.Unmarshal(data, &q); err != nil {
		t.Fatalf("parse quality report: %v", err)
	}

	if q.Rows != len(rawOrders) || q.RunID != outcome.RunID {
		t.Errorf("quality report rows=%d run_id=%q", q.Rows, q.RunID)
	}

	if q.Uniqueness.UniqueOrderIDs != len(rawOrders) {
		t.Errorf("UniqueOrderIDs = %d", q.Uniqueness.UniqueOrderIDs)
	}

	metrics, err := os.ReadFile(filepath.Join(out, cfg.Output.MetricsTextfile))
	if err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(string(metrics), "egretail_rows 4") {
		t.Errorf("metrics textfile missing row gauge:\n%s", metrics)
	}

	// 5. Dashboard inputs
	rows, err := report.Read(biPath)
	if err != nil {
		t.Fatalf("report.Read() error = %v", err)
	}

	k, err := report.Compute(rows)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}

	if k.Orders != len(rawOrders) {
		t.Errorf("KPI orders = %d, want %d", k.Orders, len(rawOrders))
	}

	if !k.Revenue.IsPositive() {
		t.Errorf("KPI revenue = %s, want > 0", k.Revenue)
	}

	sum, err := metadata.HashFile(biPath)
	if err != nil {
		t.Fatal(err)
	}

	md, err := report.RenderMarkdown(k, "EGP", metadata.Provenance{
		RunID:        outcome.RunID,
		QualityTier:  q.Score.Tier,
		QualityScore: q.Score.Overall,
		SourceSHA256: sum,
	})
	if err != nil {
		t.Fatalf("RenderMarkdown() error = %v", err)
	}

	p, err := metadata.Verify(md)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if err := p.VerifySource(biPath); err != nil {
		t.Errorf("VerifySource() error = %v", err)
	}

	if err := report.WriteDashboard(filepath.Join(out, "dashboard.xlsx"), k, "EGP"); err != nil {
		t.Errorf("WriteDashboard() error = %v", err)
	}
}

func TestPipelineFlow_MissingColumn(t *testing.T) {
	in := t.TempDir()
	sheets := config.DefaultConfig().Input.Sheets

	if err := os.WriteFile(filepath.Join(in, sheets.Orders+".csv"), []byte("OrderID,OrderDate\nA1,2024-01-01\n"), 0644); err != nil {
		t.Fatal(err)
	}

	for name, content := range map[string]string{
		sheets.Products:     "SKU,ProductName,Category\n",
		sheets.Governorates: "Governorate\n",
		sheets.Customers:    "CustomerID\n",
	} {
		if err := os.WriteFile(filepath.Join(in, name+".csv"), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Input.Workbook = ""
	cfg.Input.CSVDir = in
	cfg.Output.Dir = t.TempDir()

	m, err := mapping.Default()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := pipeline.Execute(context.Background(), cfg, m, nil); !errors.Is(err, models.ErrMissingColumn) {
		t.Fatalf("Execute() error = %v, want missing column error", err)
	}

	entries, _ := os.ReadDir(cfg.Output.Dir)
	if len(entries) != 0 {
		t.Errorf("outputs written on failure: %d entries", len(entries))
	}
}
