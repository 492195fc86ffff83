package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// CadenceKind selects how a schedule's next run time is computed.
type CadenceKind int

const (
	KindInterval CadenceKind = iota // fixed duration between runs
	KindDaily                       // every day at HH:MM
	KindWeekly                      // every week at HH:MM on a weekday
	KindMonthly                     // 1st of every month at HH:MM
	KindCron                        // raw cron spec
)

func (k CadenceKind) String() string {
	switch k {
	case KindInterval:
		return "interval"
	case KindDaily:
		return "daily"
	case KindWeekly:
		return "weekly"
	case KindMonthly:
		return "monthly"
	case KindCron:
		return "cron"
	default:
		return "unknown"
	}
}

// Cadence describes when a schedule fires. Build cadences with the
// constructors below; they validate eagerly so a typo in a weekday name or
// a cron spec is an error at registration time, not a silently-ignored
// constraint at run time.
type Cadence struct {
	Kind    CadenceKind
	Every   time.Duration // KindInterval
	Hour    int           // KindDaily/KindWeekly/KindMonthly
	Minute  int
	Weekday time.Weekday // KindWeekly
	Spec    string       // KindCron, the raw spec

	sched cron.Schedule // KindCron, parsed form
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Interval returns a cadence firing every d.
func Interval(d time.Duration) (Cadence, error) {
	return Cadence{Kind: KindInterval, Every: d}.normalized()
}

// DailyAt returns a cadence firing every day at "HH:MM".
func DailyAt(at string) (Cadence, error) {
	h, m, err := parseHHMM(at)
	if err != nil {
		return Cadence{}, err
	}
	return Cadence{Kind: KindDaily, Hour: h, Minute: m}.normalized()
}

// WeeklyAt returns a cadence firing at "HH:MM" on the named weekday
// ("Sunday", "monday", ...). Unknown weekday names are an error.
func WeeklyAt(weekday, at string) (Cadence, error) {
	wd, err := ParseWeekday(weekday)
	if err != nil {
		return Cadence{}, err
	}
	h, m, err := parseHHMM(at)
	if err != nil {
		return Cadence{}, err
	}
	return Cadence{Kind: KindWeekly, Hour: h, Minute: m, Weekday: wd}.normalized()
}

// MonthlyAt returns a cadence firing on the 1st of every month at "HH:MM".
func MonthlyAt(at string) (Cadence, error) {
	h, m, err := parseHHMM(at)
	if err != nil {
		return Cadence{}, err
	}
	return Cadence{Kind: KindMonthly, Hour: h, Minute: m}.normalized()
}

// CronSpec returns a cadence driven by a standard 5-field cron spec or a
// descriptor like "@hourly" / "@every 6h".
func CronSpec(spec string) (Cadence, error) {
	return Cadence{Kind: KindCron, Spec: spec}.normalized()
}

// normalized validates the cadence and fills derived fields (the parsed
// cron schedule). The registry normalizes every cadence on Add, so Next can
// assume a well-formed receiver.
func (c Cadence) normalized() (Cadence, error) {
	switch c.Kind {
	case KindInterval:
		if c.Every <= 0 {
			return Cadence{}, fmt.Errorf("interval cadence requires a positive duration, got %v", c.Every)
		}
	case KindDaily, KindWeekly, KindMonthly:
		if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
			return Cadence{}, fmt.Errorf("invalid clock time %02d:%02d", c.Hour, c.Minute)
		}
		if c.Kind == KindWeekly && (c.Weekday < time.Sunday || c.Weekday > time.Saturday) {
			return Cadence{}, fmt.Errorf("invalid weekday %d", c.Weekday)
		}
	case KindCron:
		sched, err := cronParser.Parse(c.Spec)
		if err != nil {
			return Cadence{}, fmt.Errorf("invalid cron spec %q: %w", c.Spec, err)
		}
		c.sched = sched
	default:
		return Cadence{}, fmt.Errorf("unknown cadence kind %d", c.Kind)
	}
	return c, nil
}

// Next returns the first fire time strictly after now (equal to now only
// when the schedule is exactly due). It is pure: inject now for testing.
func (c Cadence) Next(now time.Time) time.Time {
	switch c.Kind {
	case KindInterval:
		return now.Add(c.Every)
	case KindDaily, KindWeekly:
		next := time.Date(now.Year(), now.Month(), now.Day(), c.Hour, c.Minute, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		if c.Kind == KindWeekly {
			for next.Weekday() != c.Weekday {
				next = next.AddDate(0, 0, 1)
			}
		}
		return next
	case KindMonthly:
		if now.Day() == 1 {
			today := time.Date(now.Year(), now.Month(), 1, c.Hour, c.Minute, 0, 0, now.Location())
			if today.After(now) {
				return today
			}
		}
		return firstOfNextMonth(now, c.Hour, c.Minute)
	case KindCron:
		if c.sched == nil {
			// Zero-value misuse; constructors always set sched.
			return time.Time{}
		}
		return c.sched.Next(now)
	default:
		return time.Time{}
	}
}

// String renders the cadence for logs and descriptions.
func (c Cadence) String() string {
	switch c.Kind {
	case KindInterval:
		return fmt.Sprintf("every %s", c.Every)
	case KindDaily:
		return fmt.Sprintf("daily at %02d:%02d", c.Hour, c.Minute)
	case KindWeekly:
		return fmt.Sprintf("every %s at %02d:%02d", c.Weekday, c.Hour, c.Minute)
	case KindMonthly:
		return fmt.Sprintf("1st of month at %02d:%02d", c.Hour, c.Minute)
	case KindCron:
		return fmt.Sprintf("cron %q", c.Spec)
	default:
		return "unknown"
	}
}

// firstOfNextMonth builds the 1st of the following month explicitly.
// Relying on time.Date's day/month overflow normalization here has bitten
// enough schedulers that we roll the year boundary by hand.
func firstOfNextMonth(now time.Time, hour, minute int) time.Time {
	year, month := now.Year(), now.Month()
	if month == time.December {
		year++
		month = time.January
	} else {
		month++
	}
	return time.Date(year, month, 1, hour, minute, 0, 0, now.Location())
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps an English weekday name to time.Weekday. Unknown names
// are rejected rather than treated as "any day".
func ParseWeekday(name string) (time.Weekday, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown weekday %q", name)
	}
	return wd, nil
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
