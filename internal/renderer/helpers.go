package renderer

import "go.uber.org/multierr"

// Unwind collects cleanup steps while a multi-stage setup runs so a failure
// part way through can release what was already created, newest first.
type Unwind []func() error

func (u *Unwind) Add(cleanup func() error) {
	*u = append(*u, cleanup)
}

// Unwind runs the cleanups in reverse order and empties the list.
func (u *Unwind) Unwind() error {
	var err error
	for i := len(*u) - 1; i >= 0; i-- {
		err = multierr.Append(err, (*u)[i]())
	}
	*u = (*u)[:0]
	return err
}

// Discard drops the cleanups once setup has succeeded.
func (u *Unwind) Discard() {
	*u = (*u)[:0]
}

// disposable tracks one-shot release of a GPU-backed resource. Backends
// attach hooks when they upload the resource.
type disposable struct {
	disposed bool
	hooks    []func() error
}

// OnDispose registers fn to run when the resource is disposed.
func (d *disposable) OnDispose(fn func() error) {
	if d.disposed {
		return
	}
	d.hooks = append(d.hooks, fn)
}

func (d *disposable) Disposed() bool {
	return d.disposed
}

func (d *disposable) dispose() error {
	if d.disposed {
		return nil
	}
	d.disposed = true
	var err error
	for _, fn := range d.hooks {
		err = multierr.Append(err, fn())
	}
	d.hooks = nil
	return err
}
