package orders

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IST is the zone order dates are displayed and searched in.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// StatusAll selects every status.
const StatusAll = "All"

type Filter struct {
	UserID string
	Status string
	Query  string
}

// FormatOrderDate renders a date the way the order list shows it (en-IN,
// day/month/year without padding).
func FormatOrderDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2/1/2006")
}

// FilterOrders applies an exact status match and a case-insensitive
// substring search over the order id and formatted order date.
func FilterOrders(list []Order, f Filter, loc *time.Location) []Order {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := []Order{}
	for _, o := range list {
		if f.UserID != "" && o.UserID != f.UserID {
			continue
		}
		if f.Status != "" && f.Status != StatusAll && string(o.Status) != f.Status {
			continue
		}
		if q != "" &&
			!strings.Contains(strconv.FormatInt(o.ID, 10), q) &&
			!strings.Contains(strings.ToLower(FormatOrderDate(o.OrderDate, loc)), q) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// SearchAdmin matches the order id or the customer's name.
func SearchAdmin(list []Order, query string) []Order {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return list
	}
	out := []Order{}
	for _, o := range list {
		if strings.Contains(strconv.FormatInt(o.ID, 10), q) ||
			strings.Contains(strings.ToLower(o.Address.FullName), q) {
			out = append(out, o)
		}
	}
	return out
}

// CountByStatus returns the tab counts of the order list, "All" included.
func CountByStatus(list []Order) map[string]int {
	counts := map[string]int{StatusAll: len(list)}
	for _, s := range Statuses {
		counts[string(s)] = 0
	}
	for _, o := range list {
		counts[string(o.Status)]++
	}
	return counts
}

func Revenue(list []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range list {
		total = total.Add(o.Total)
	}
	return total
}
