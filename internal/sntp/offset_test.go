package sntp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeOffset(t *testing.T) {
	testTable := []struct {
		Name           string
		T1, T2, T3, T4 float64
		ExpectedDelay  float64
		ExpectedOffset float64
	}{
		{
			Name:           "server ahead",
			T1:             0,
			T2:             100,
			T3:             110,
			T4:             50,
			ExpectedDelay:  40,
			ExpectedOffset: 80,
		},
		{
			Name:           "in sync",
			T1:             1000,
			T2:             1010,
			T3:             1011,
			T4:             1021,
			ExpectedDelay:  20,
			ExpectedOffset: 0,
		},
		{
			Name:           "server behind",
			T1:             5000,
			T2:             4000,
			T3:             4002,
			T4:             5012,
			ExpectedDelay:  10,
			ExpectedOffset: -1005,
		},
	}

	for _, tst := range testTable {
		t.Run(tst.Name, func(t *testing.T) {
			assert := assert.New(t)
			delay, offset := ComputeOffset(tst.T1, tst.T2, tst.T3, tst.T4)
			assert.Equal(tst.ExpectedDelay, delay)
			assert.Equal(tst.ExpectedOffset, offset)
		})
	}
}
