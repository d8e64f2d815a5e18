// Package modules provides the builtin module implementations (root,
// spine, arm, leg) and the registry wiring them to their type keys. All
// builtins share the chain scaffold: a placement group of guides, a joint
// chain under the parent joint, and one curve controller per joint.
package modules
