package crawler

// DefaultMaxPages is the hard cap on distinct pages visited per run.
const DefaultMaxPages = 300

// Frontier is the FIFO of pending URLs guarded by a visited set and a hard
// cap on how many distinct URLs may ever be visited. URLs are compared in
// normalized form.
type Frontier struct {
	queue   []string
	queued  map[string]struct{}
	visited map[string]struct{}
	limit   int
}

// NewFrontier builds an empty frontier. A non-positive limit uses DefaultMaxPages.
func NewFrontier(limit int) *Frontier {
	if limit <= 0 {
		limit = DefaultMaxPages
	}
	return &Frontier{
		queued:  make(map[string]struct{}),
		visited: make(map[string]struct{}),
		limit:   limit,
	}
}

// Push enqueues rawURL unless it is unparsable, already visited, or already queued.
// It reports whether the URL was added.
func (f *Frontier) Push(rawURL string) bool {
	key, err := NormalizeURL(rawURL)
	if err != nil || key == "" {
		return false
	}
	if _, seen := f.visited[key]; seen {
		return false
	}
	if _, pending := f.queued[key]; pending {
		return false
	}
	f.queued[key] = struct{}{}
	f.queue = append(f.queue, key)
	return true
}

// Next pops the next unvisited URL and marks it visited. It returns false once
// the queue is empty or the visited cap has been reached.
func (f *Frontier) Next() (string, bool) {
	for len(f.queue) > 0 {
		if f.Exhausted() {
			return "", false
		}
		head := f.queue[0]
		f.queue[0] = ""
		f.queue = f.queue[1:]
		delete(f.queued, head)
		if _, seen := f.visited[head]; seen {
			continue
		}
		f.visited[head] = struct{}{}
		return head, true
	}
	return "", false
}

// Seen reports whether rawURL has already been visited.
func (f *Frontier) Seen(rawURL string) bool {
	key, err := NormalizeURL(rawURL)
	if err != nil {
		return false
	}
	_, ok := f.visited[key]
	return ok
}

// Len is the number of pending URLs.
func (f *Frontier) Len() int { return len(f.queue) }

// Visited is the number of distinct URLs handed out by Next.
func (f *Frontier) Visited() int { return len(f.visited) }

// Exhausted reports whether the visited cap has been reached.
func (f *Frontier) Exhausted() bool { return len(f.visited) >= f.limit }
