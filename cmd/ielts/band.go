package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/scoring"
	"github.com/spf13/cobra"
)

func bandCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "band",
		Short: "Convert a raw count to a band, or module bands to an overall band",
		Example: "  ielts band --count 30\n" +
			"  ielts band --bands 7,6.5,6,",
		RunE: runBand,
	}
	f := cmd.Flags()
	f.Int("count", -1, "Raw correct count out of 40")
	f.String("bands", "", "Comma separated reading,listening,writing,speaking bands; leave a slot empty when ungraded")
	cmd.MarkFlagsMutuallyExclusive("count", "bands")
	return cmd
}

func runBand(cmd *cobra.Command, _ []string) error {
	count, _ := cmd.Flags().GetInt("count")
	bands, _ := cmd.Flags().GetString("bands")

	enc := json.NewEncoder(cmd.OutOrStdout())
	switch {
	case cmd.Flags().Changed("count"):
		if count < 0 {
			return errors.New("--count must not be negative")
		}
		return enc.Encode(map[string]interface{}{
			"correct_count": count,
			"band":          scoring.BandFromRawCount(count),
		})
	case cmd.Flags().Changed("bands"):
		scores, err := parseBands(bands)
		if err != nil {
			return err
		}
		scores = scoring.WithOverall(scores)
		return enc.Encode(map[string]interface{}{
			"scores": scores,
			"state":  scoring.State(scores),
		})
	}
	return errors.New("one of --count or --bands is required")
}

func parseBands(s string) (models.SessionScores, error) {
	parts := strings.Split(s, ",")
	if len(parts) > 4 {
		return models.SessionScores{}, fmt.Errorf("expected at most 4 bands, got %d", len(parts))
	}

	slots := make([]*models.Band, 4)
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return models.SessionScores{}, fmt.Errorf("band %q is not a number", p)
		}
		b := models.Band(f)
		if !b.Valid() {
			return models.SessionScores{}, fmt.Errorf("%w: %s", scoring.ErrInvalidBand, p)
		}
		slots[i] = &b
	}

	return models.SessionScores{
		Reading:   slots[0],
		Listening: slots[1],
		Writing:   slots[2],
		Speaking:  slots[3],
	}, nil
}
