package kalshi

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

const (
	incentiveProgramsPath = "/incentive_programs"
	pageSize              = 100
)

// FetchIncentivePrograms devuelve todos los programas de incentivos publicados.
// Pagina usando next_cursor hasta agotar los resultados.
func (c *Client) FetchIncentivePrograms(ctx context.Context) ([]domain.IncentiveProgram, error) {
	var all []domain.IncentiveProgram
	cursor := ""

	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp incentiveProgramsResponse
		if err := c.get(ctx, incentiveProgramsPath, q, false, &resp); err != nil {
			return nil, fmt.Errorf("kalshi.FetchIncentivePrograms: %w", err)
		}
		all = append(all, mapIncentivePrograms(resp.IncentivePrograms)...)

		slog.Debug("fetched incentive programs page",
			"count", len(resp.IncentivePrograms),
			"total", len(all),
			"has_more", resp.NextCursor != "",
		)

		if resp.NextCursor == "" || resp.NextCursor == cursor {
			break
		}
		cursor = resp.NextCursor
	}

	slog.Info("incentive programs fetched", "total", len(all))
	return all, nil
}
