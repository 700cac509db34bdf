// Package subst implements launch-time substitutions: small expression trees
// that are stored inert inside a session description and only turned into
// strings when a resolver walks the description against a scope.
//
// Every expression is a tagged variant (Literal, Var, EnvVar, Command,
// Concat, PathJoin, Share, Equals, NotEquals, And, Or, Not, If). There is no
// evaluation of user code: the variants are the whole language.
//
// Resolution is repeatable. Resolving the same expression against two scopes
// yields two independent results and leaves the expression untouched. The
// one deliberate exception is Command, which runs its subprocess on every
// resolution and blocks the caller until the subprocess exits.
package subst
