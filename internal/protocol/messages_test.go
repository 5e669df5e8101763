package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/overfly42/found-gems/internal/grid"
)

func TestDecodeFirstTick(t *testing.T) {
	line := []byte(`{"config":{"width":12,"height":6,"max_ticks":500,"vis_radius":5,"max_gems":2,"gem_ttl":40,"emit_signals":true,"signal_radius":3.5},` +
		`"tick":1,"bot":[2,3],"wall":[[3,3]],"floor":[[2,3],[1,3]],` +
		`"visible_bots":[{"position":[1,3]}],"visible_gems":[{"position":[2,4],"ttl":12}],"signal_level":0.25}`)

	obs, err := Decode(line)
	require.NoError(t, err)
	require.NotNil(t, obs.Config)
	assert.Equal(t, 12, obs.Config.Width)
	assert.Equal(t, 3.5, obs.Config.SignalRadius)
	assert.True(t, obs.Config.EmitSignals)
	assert.Equal(t, grid.Cell{X: 2, Y: 3}, obs.Bot.Cell())
	assert.Equal(t, []grid.Cell{{X: 3, Y: 3}}, Cells(obs.Walls))
	require.Len(t, obs.VisibleGems, 1)
	assert.Equal(t, 12, obs.VisibleGems[0].TTL)
	require.NotNil(t, obs.SignalLevel)
	assert.Equal(t, 0.25, *obs.SignalLevel)
}

func TestDecodeRejectsMalformedLine(t *testing.T) {
	_, err := Decode([]byte(`{"tick":`))
	require.Error(t, err)
}

func TestGameConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		cfg     GameConfig
		wantErr bool
	}{
		{name: "ok", cfg: GameConfig{Width: 4, Height: 4}},
		{name: "missing width", cfg: GameConfig{Height: 4}, wantErr: true},
		{name: "negative height", cfg: GameConfig{Width: 4, Height: -1}, wantErr: true},
		{name: "negative radius", cfg: GameConfig{Width: 4, Height: 4, EmitSignals: true, SignalRadius: -2}, wantErr: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfig))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestGameConfigNormalized(t *testing.T) {
	cfg := GameConfig{Width: 3, Height: 3}.Normalized()
	assert.Equal(t, DefaultGemTTL, cfg.GemTTL)
	assert.Equal(t, DefaultVisRadius, cfg.VisRadius)
	assert.Equal(t, DefaultSignalRadius, cfg.SignalRadius)
}

func TestEncodeMove(t *testing.T) {
	line, err := EncodeMove(grid.East, nil)
	require.NoError(t, err)
	assert.Equal(t, "E", line)

	line, err = EncodeMove(grid.Wait, []Highlight{{Cell: grid.Cell{X: 1, Y: 2}, Color: ColorGem}})
	require.NoError(t, err)
	assert.Equal(t, `WAIT {"highlight":[[1,2,"#FFFF00"]]}`, line)

	line, err = EncodeMove(grid.North, []Highlight{})
	require.NoError(t, err)
	assert.Equal(t, `N {"highlight":[]}`, line)
}
