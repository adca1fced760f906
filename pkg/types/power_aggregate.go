package types

// PowerAggregate is the grouped MIN/MAX/AVG/COUNT of instantaneous power
// over a time range. Count only covers rows with a present power value, so
// the min/max/avg fields are nil exactly when Count is zero.
type PowerAggregate struct {
	MinWatts *float64
	MaxWatts *float64
	AvgWatts *float64
	Count    int64
}
