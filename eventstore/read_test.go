package eventstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShould_Compose_Read_Options(t *testing.T) {
	cases := []struct {
		name string
		opts []ReadOpt
		want ReadConfig
	}{
		{
			name: "defaults",
			want: ReadConfig{direction: forwards, from: StartOfStream},
		},
		{
			name: "backwards starts at end",
			opts: []ReadOpt{Backwards()},
			want: ReadConfig{direction: backwards, from: EndOfStream},
		},
		{
			name: "backwards keeps explicit version",
			opts: []ReadOpt{FromVersion(3), Backwards()},
			want: ReadConfig{direction: backwards, from: 3},
		},
		{
			name: "version after backwards",
			opts: []ReadOpt{Backwards(), FromVersion(3), WithMaxCount(2)},
			want: ReadConfig{direction: backwards, from: 3, maxCount: 2},
		},
		{
			name: "backwards twice",
			opts: []ReadOpt{Backwards(), FromVersion(2), Backwards()},
			want: ReadConfig{direction: backwards, from: 2},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := ReadConfig{direction: forwards, from: StartOfStream}

			for _, opt := range tc.opts {
				cfg = opt(cfg)
			}

			assert.Equal(t, tc.want, cfg)
		})
	}
}
