package table

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/joseph-ayodele/pdf-field-extractor/internal/common"
)

const graphScope = "https://graph.microsoft.com/.default"

// GraphOptions locate a workbook stored in a drive and the app registration that may read it.
type GraphOptions struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	TokenURL     string // derived from TenantID when empty
	BaseURL      string
	DriveID      string
	ItemID       string
	Worksheet    string
	Timeout      time.Duration
	Retry        Retry
}

// GraphSource reads the used range of a remote worksheet and patches rows below it.
type GraphSource struct {
	opts   GraphOptions
	client *http.Client
	log    *slog.Logger
}

func NewGraphSource(ctx context.Context, opts GraphOptions, log *slog.Logger) *GraphSource {
	if log == nil {
		log = slog.Default()
	}
	if opts.TokenURL == "" {
		opts.TokenURL = "https://login.microsoftonline.com/" + url.PathEscape(opts.TenantID) + "/oauth2/v2.0/token"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://graph.microsoft.com/v1.0"
	}
	if opts.Worksheet == "" {
		opts.Worksheet = "Sheet1"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.Unit <= 0 {
		opts.Retry = DefaultRetry()
	}
	cc := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
		Scopes:       []string{graphScope},
	}
	client := cc.Client(ctx)
	client.Timeout = opts.Timeout
	return &GraphSource{opts: opts, client: client, log: log}
}

func (g *GraphSource) worksheetURL() string {
	return fmt.Sprintf("%s/drives/%s/items/%s/workbook/worksheets/%s",
		strings.TrimRight(g.opts.BaseURL, "/"),
		url.PathEscape(g.opts.DriveID),
		url.PathEscape(g.opts.ItemID),
		url.PathEscape(g.opts.Worksheet))
}

type rangeValues struct {
	Values [][]any `json:"values"`
}

func (g *GraphSource) Rows(ctx context.Context) ([][]string, error) {
	var raw []byte
	err := g.opts.Retry.do(ctx, g.log, "used_range", func() error {
		var err error
		raw, err = sendJSON(ctx, g.client, http.MethodGet, g.worksheetURL()+"/usedRange", nil, g.log)
		return err
	})
	if err != nil {
		return nil, common.NewAppError(common.CodeSource, "read used range", fmt.Errorf("%w: %w", common.ErrExternal, err))
	}

	var rv rangeValues
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&rv); err != nil {
		return nil, common.NewAppError(common.CodeSource, "decode used range", err)
	}
	out := make([][]string, len(rv.Values))
	for i, row := range rv.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = cellString(v)
		}
	}
	g.log.Debug("table.graph.read", "rows", len(out))
	return out, nil
}

// AppendRows patches rows into A{n}:{col}{m} directly below the used range.
func (g *GraphSource) AppendRows(ctx context.Context, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	existing, err := g.Rows(ctx)
	if err != nil {
		return err
	}
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	lastCol, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return common.NewAppError(common.CodeSource, "row width", err)
	}
	padded := make([][]any, len(rows))
	for i, r := range rows {
		padded[i] = make([]any, width)
		for j := range padded[i] {
			if j < len(r) && r[j] != nil {
				padded[i][j] = r[j]
			} else {
				padded[i][j] = ""
			}
		}
	}

	first := max(len(existing), DataRow) + 1
	address := fmt.Sprintf("A%d:%s%d", first, lastCol, first+len(rows)-1)
	endpoint := g.worksheetURL() + "/range(address='" + address + "')"
	err = g.opts.Retry.do(ctx, g.log, "patch_range", func() error {
		_, err := sendJSON(ctx, g.client, http.MethodPatch, endpoint, rangeValues{Values: padded}, g.log)
		return err
	})
	if err != nil {
		return common.NewAppError(common.CodeSource, "append rows at "+address, fmt.Errorf("%w: %w", common.ErrExternal, err))
	}
	g.log.Info("table.graph.appended", "address", address, "rows", len(rows))
	return nil
}
