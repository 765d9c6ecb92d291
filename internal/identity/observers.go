package identity

import "sync"

type observers struct {
	mu   sync.Mutex
	next int
	fns  map[string]map[int]func(*Session)
}

func (o *observers) add(uid string, fn func(*Session)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = map[string]map[int]func(*Session){}
	}
	if o.fns[uid] == nil {
		o.fns[uid] = map[int]func(*Session){}
	}
	id := o.next
	o.next++
	o.fns[uid][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.fns[uid], id)
			if len(o.fns[uid]) == 0 {
				delete(o.fns, uid)
			}
		})
	}
}

// notify fans s out asynchronously so callers holding their own locks never re-enter.
func (o *observers) notify(uid string, s *Session) {
	o.mu.Lock()
	fns := make([]func(*Session), 0, len(o.fns[uid]))
	for _, fn := range o.fns[uid] {
		fns = append(fns, fn)
	}
	o.mu.Unlock()
	for _, fn := range fns {
		var cp *Session
		if s != nil {
			v := *s
			cp = &v
		}
		go fn(cp)
	}
}
