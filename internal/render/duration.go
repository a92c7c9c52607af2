package render

import (
	"fmt"
	"strings"
	"time"

	"bakpdlbot/lib/jsonutil"
)

func seconds(v any) (float64, error) {
	switch v := v.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case time.Duration:
		return v.Seconds(), nil
	case jsonutil.Value:
		f, ok := v.Float()
		if !ok {
			return 0, fmt.Errorf("not a number: %s", v.Bytes())
		}
		return f, nil
	}
	return 0, fmt.Errorf("unsupported duration type %T", v)
}

// SDur formats a duration in seconds compactly, ex. "1h2m3s", zero units are left out.
func SDur(v any) (string, error) {
	s, err := seconds(v)
	if err != nil {
		return "", err
	}
	d := time.Duration(s * float64(time.Second)).Round(time.Second)
	if d <= 0 {
		return "0s", nil
	}

	units := []struct {
		suffix string
		size   time.Duration
	}{
		{"d", time.Hour * 24},
		{"h", time.Hour},
		{"m", time.Minute},
		{"s", time.Second},
	}
	var out strings.Builder
	for _, u := range units {
		n := d / u.size
		if n == 0 {
			continue
		}
		d -= n * u.size
		fmt.Fprintf(&out, "%d%s", n, u.suffix)
	}
	return out.String(), nil
}
