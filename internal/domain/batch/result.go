// Package batch reports per-item outcomes of bulk operations.
package batch

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Result is the outcome of one uploaded item. Index is the item's position
// in the request; ID is empty when the item never got one.
type Result struct {
	index  int
	id     string
	name   string
	status ItemStatus
	err    error
}

// NewOK creates a successful batch result.
func NewOK(index int, id, name string) Result {
	return Result{index: index, id: id, name: name, status: StatusOK}
}

// NewError creates a failed batch result.
func NewError(index int, id, name string, err error) Result {
	return Result{index: index, id: id, name: name, status: StatusError, err: err}
}

// Index returns the item position in the request.
func (r Result) Index() int { return r.index }

// ID returns the assigned product ID, if any.
func (r Result) ID() string { return r.id }

// Name returns the submitted product name.
func (r Result) Name() string { return r.name }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }

// Counts tallies results by status.
func Counts(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.status == StatusOK {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
