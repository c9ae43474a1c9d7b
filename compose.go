package mvu

// Route labels every result message of cmd with prefix by wrapping it in
// Routed, so a parent's update can recognize and delegate it. A nil cmd
// stays nil.
func Route(cmd Cmd, prefix Tag) Cmd {
	return Map(cmd, func(m Msg) Msg {
		return Routed{Prefix: prefix, Msg: m}
	})
}

// Delegate unwraps a message routed to prefix and runs the child's update
// on it. The child's command, if any, is re-wrapped with Route so its
// results come back through the same prefix. ok is false when msg is not a
// Routed message for prefix, letting the parent try other routes.
func Delegate(msg Msg, prefix Tag, childUpdate UpdateFunc, childModel Model) (newChild Model, cmd Cmd, ok bool) {
	r, isRouted := msg.(Routed)
	if !isRouted || r.Prefix != prefix {
		return nil, nil, false
	}
	newChild, childCmd := childUpdate(r.Msg, childModel)
	if newChild == nil {
		newChild = childModel
	}
	return newChild, Route(childCmd, prefix), true
}
