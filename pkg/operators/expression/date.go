package expression

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agebrock/agebrock-mimo/pkg/core"
	"github.com/agebrock/agebrock-mimo/pkg/document"
)

var dateOperators = map[string]core.ExpressionFunc{
	"$dayOfMonth":   datePart(func(t time.Time) int { return t.Day() }),
	"$dayOfWeek":    datePart(func(t time.Time) int { return int(t.Weekday()) + 1 }),
	"$dayOfYear":    datePart(func(t time.Time) int { return t.YearDay() }),
	"$hour":         datePart(func(t time.Time) int { return t.Hour() }),
	"$millisecond":  datePart(func(t time.Time) int { return t.Nanosecond() / int(time.Millisecond) }),
	"$minute":       datePart(func(t time.Time) int { return t.Minute() }),
	"$month":        datePart(func(t time.Time) int { return int(t.Month()) }),
	"$second":       datePart(func(t time.Time) int { return t.Second() }),
	"$week":         datePart(sundayWeek),
	"$year":         datePart(func(t time.Time) int { return t.Year() }),
	"$dateToString": dateToString,
}

// sundayWeek numbers weeks from 0, with weeks starting on Sunday
func sundayWeek(t time.Time) int {
	return (t.YearDay() + 6 - int(t.Weekday())) / 7
}

// location parses an Olson name or a UTC offset such as +05:30
func location(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	if tz[0] == '+' || tz[0] == '-' {
		raw := strings.ReplaceAll(tz[1:], ":", "")
		if len(raw) == 2 {
			raw += "00"
		}
		if len(raw) == 4 {
			h, err1 := strconv.Atoi(raw[:2])
			m, err2 := strconv.Atoi(raw[2:])
			if err1 == nil && err2 == nil {
				offset := h*3600 + m*60
				if tz[0] == '-' {
					offset = -offset
				}
				return time.FixedZone(tz, offset), nil
			}
		}
		return nil, fmt.Errorf("%w: invalid timezone offset %q", core.ErrInvalidArgument, tz)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidArgument, err)
	}
	return loc, nil
}

// dateArg evaluates a date operand given either directly or as
// {date, timezone}. ok is false for null or missing dates.
func dateArg(obj, expr interface{}, ctx *core.Context) (t time.Time, ok bool, err error) {
	tz := ""
	if m, isMap := expr.(map[string]interface{}); isMap {
		if d, hasDate := m["date"]; hasDate {
			expr = d
			if z, hasTZ := m["timezone"]; hasTZ {
				v, err := compute(obj, z, ctx)
				if err != nil {
					return t, false, err
				}
				tz, _ = v.(string)
			}
		}
	}
	if arr, isArr := expr.([]interface{}); isArr && len(arr) == 1 {
		expr = arr[0]
	}

	v, err := compute(obj, expr, ctx)
	if err != nil {
		return t, false, err
	}
	if document.IsNil(v) {
		return t, false, nil
	}
	t, ok = document.ToTime(v)
	if !ok {
		if id, isID := v.(document.ObjectID); isID {
			t, ok = id.Timestamp(), true
		} else {
			return t, false, fmt.Errorf("%w: expected a date, got %T", core.ErrInvalidArgument, v)
		}
	}
	loc, err := location(tz)
	if err != nil {
		return t, false, err
	}
	return t.In(loc), true, nil
}

func datePart(part func(time.Time) int) core.ExpressionFunc {
	return func(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
		t, ok, err := dateArg(obj, expr, ctx)
		if err != nil || !ok {
			return nil, err
		}
		return int64(part(t)), nil
	}
}

func dateToString(obj, expr interface{}, ctx *core.Context) (interface{}, error) {
	m, err := object("$dateToString", expr, "date")
	if err != nil {
		return nil, err
	}
	t, ok, err := dateArg(obj, map[string]interface{}{"date": m["date"], "timezone": m["timezone"]}, ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		if onNull, has := m["onNull"]; has {
			return compute(obj, onNull, ctx)
		}
		return nil, nil
	}
	format := "%Y-%m-%dT%H:%M:%S.%LZ"
	if f, has := m["format"]; has {
		v, err := compute(obj, f, ctx)
		if err != nil {
			return nil, err
		}
		if format, ok = v.(string); !ok {
			return nil, fmt.Errorf("%w: $dateToString format must be a string", core.ErrInvalidArgument)
		}
	}
	return FormatDate(t, format)
}

// FormatDate formats t with MongoDB date format specifiers
func FormatDate(t time.Time, format string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			sb.WriteByte(c)
			continue
		}
		if i+1 >= len(format) {
			return "", fmt.Errorf("%w: dangling %% in date format", core.ErrInvalidArgument)
		}
		i++
		switch format[i] {
		case 'Y':
			fmt.Fprintf(&sb, "%04d", t.Year())
		case 'm':
			fmt.Fprintf(&sb, "%02d", int(t.Month()))
		case 'd':
			fmt.Fprintf(&sb, "%02d", t.Day())
		case 'H':
			fmt.Fprintf(&sb, "%02d", t.Hour())
		case 'M':
			fmt.Fprintf(&sb, "%02d", t.Minute())
		case 'S':
			fmt.Fprintf(&sb, "%02d", t.Second())
		case 'L':
			fmt.Fprintf(&sb, "%03d", t.Nanosecond()/int(time.Millisecond))
		case 'j':
			fmt.Fprintf(&sb, "%03d", t.YearDay())
		case 'w':
			fmt.Fprintf(&sb, "%d", int(t.Weekday())+1)
		case 'u':
			wd := int(t.Weekday())
			if wd == 0 {
				wd = 7
			}
			fmt.Fprintf(&sb, "%d", wd)
		case 'U':
			fmt.Fprintf(&sb, "%02d", sundayWeek(t))
		case 'V':
			_, week := t.ISOWeek()
			fmt.Fprintf(&sb, "%02d", week)
		case 'G':
			year, _ := t.ISOWeek()
			fmt.Fprintf(&sb, "%04d", year)
		case 'z':
			sb.WriteString(t.Format("-0700"))
		case 'Z':
			_, offset := t.Zone()
			fmt.Fprintf(&sb, "%d", offset/60)
		case '%':
			sb.WriteByte('%')
		default:
			return "", fmt.Errorf("%w: unknown date format specifier %%%c", core.ErrInvalidArgument, format[i])
		}
	}
	return sb.String(), nil
}
