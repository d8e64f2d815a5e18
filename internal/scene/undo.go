package scene

type undoEntry struct {
	name   string
	before *Snapshot
}

// Undoable runs fn and journals everything it changed as a single undo
// entry named after the operation. Nested calls fold into the outermost
// chunk. The entry is recorded even when fn fails, so a partially applied
// operation is still reversible in one step.
func (m *Memory) Undoable(name string, fn func() error) error {
	if m.chunkDepth == 0 {
		m.chunkName = name
		m.chunkPre = m.Snapshot()
	}
	m.chunkDepth++
	err := fn()
	m.chunkDepth--
	if m.chunkDepth == 0 {
		m.undoStack = append(m.undoStack, undoEntry{name: m.chunkName, before: m.chunkPre})
		m.chunkPre = nil
	}
	return err
}

// Undo reverses the most recent journal entry, restoring the graph to the
// state it held before that operation. It reports the entry's name and
// whether anything was undone.
func (m *Memory) Undo() (string, bool) {
	if len(m.undoStack) == 0 {
		return "", false
	}
	entry := m.undoStack[len(m.undoStack)-1]
	m.undoStack = m.undoStack[:len(m.undoStack)-1]
	if err := m.restore(entry.before); err != nil {
		// Snapshots come from this graph, so restore cannot fail on them.
		panic("scene: undo restore failed: " + err.Error())
	}
	return entry.name, true
}

// UndoDepth returns how many entries are on the undo stack.
func (m *Memory) UndoDepth() int {
	return len(m.undoStack)
}
