// Package reading holds the per-cycle record of the cleanroom monitor and its
// on-disk line format.
package reading

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"

	// Header is the first line of every day file
	Header = "# Date | Time | Temperature [C] | Humidity [%] | Pressure [Pa] | Particles > 0.5 um [m^-3] | Particles > 2.5 um [m^-3] | ISO | Class"
)

// ErrMalformed is returned by Parse for lines that are not records
var ErrMalformed = errors.New("malformed reading line")

// Fragment is the part of a reading one instrument contributes
type Fragment struct {
	Temperature Value[float64]
	Humidity    Value[float64]
	Pressure    Value[int64]
	Count05     Value[float64]
	Count25     Value[float64]
}

// Merge overlays the present fields of o onto f
func (f Fragment) Merge(o Fragment) Fragment {
	if o.Temperature.Valid() {
		f.Temperature = o.Temperature
	}
	if o.Humidity.Valid() {
		f.Humidity = o.Humidity
	}
	if o.Pressure.Valid() {
		f.Pressure = o.Pressure
	}
	if o.Count05.Valid() {
		f.Count05 = o.Count05
	}
	if o.Count25.Valid() {
		f.Count25 = o.Count25
	}
	return f
}

// Reading is one sampling cycle. It is never modified once built.
type Reading struct {
	Time        time.Time      `json:"time"`
	Temperature Value[float64] `json:"temperature"`
	Humidity    Value[float64] `json:"humidity"`
	Pressure    Value[int64]   `json:"pressure"`
	Count05     Value[float64] `json:"count_0_5um"`
	Count25     Value[float64] `json:"count_2_5um"`
	Classification
}

// New builds the reading for t from the merged instrument fragments and
// classifies it.
func New(t time.Time, f Fragment) Reading {
	return Reading{
		Time:           t.Truncate(time.Second),
		Temperature:    f.Temperature,
		Humidity:       f.Humidity,
		Pressure:       f.Pressure,
		Count05:        f.Count05,
		Count25:        f.Count25,
		Classification: Classify(f.Count05, f.Count25),
	}
}

// Day is the calendar date of the reading in its own location
func (r Reading) Day() string {
	return r.Time.Format(DateLayout)
}

// Format renders the log line without a trailing newline. Absent fields are
// written as the sentinel.
func (r Reading) Format() string {
	return fmt.Sprintf("%s  %s  %3.1f  %3.1f  %d  %.0f  %.0f  %d  %d",
		r.Time.Format(DateLayout),
		r.Time.Format(TimeLayout),
		r.Temperature.OrSentinel(),
		r.Humidity.OrSentinel(),
		r.Pressure.OrSentinel(),
		r.Count05.OrSentinel(),
		r.Count25.OrSentinel(),
		r.ISO,
		r.FedStd,
	)
}

func (r Reading) String() string {
	return r.Format()
}

// Parse reads back a line written by Format, in the local time zone.
func Parse(line string) (Reading, error) {
	return ParseInLocation(line, time.Local)
}

// ParseInLocation reads back a line written by Format. The stored class is
// kept as written rather than recomputed.
func ParseInLocation(line string, loc *time.Location) (Reading, error) {
	fields := strings.Fields(line)
	if len(fields) != 9 {
		return Reading{}, fmt.Errorf("%w: %d fields", ErrMalformed, len(fields))
	}

	ts, err := time.ParseInLocation(DateLayout+" "+TimeLayout, fields[0]+" "+fields[1], loc)
	if err != nil {
		return Reading{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var nums [7]float64
	for i, field := range fields[2:] {
		n, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return Reading{}, fmt.Errorf("%w: field %d: %v", ErrMalformed, i+3, err)
		}
		nums[i] = n
	}

	return Reading{
		Time:        ts,
		Temperature: FromSentinel(nums[0]),
		Humidity:    FromSentinel(nums[1]),
		Pressure:    FromSentinel(int64(math.Round(nums[2]))),
		Count05:     FromSentinel(nums[3]),
		Count25:     FromSentinel(nums[4]),
		Classification: Classification{
			ISO:    int(nums[5]),
			FedStd: int(nums[6]),
		},
	}, nil
}

// IsComment reports whether a log line is a header or blank
func IsComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}
