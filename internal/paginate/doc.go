// Package paginate decides whether a listing page has a next page worth
// fetching.
//
// For every processed page the Driver advances the expected page counter,
// finds the navigation region, lets a Resolver pick the candidate anchor and
// resolves its href against the page origin. The candidate is only followed
// when the page number embedded in its path equals the expected counter.
// Anything else ends the branch: a page that links back to itself or to an
// earlier page can never cause a loop.
//
// The counter lives in State, which is passed in and returned by value.
// Branches crawled in parallel each carry their own State.
//
// Resolvers:
//
//   - CountResolver: positional heuristic. One anchor is taken as the
//     candidate, with two or more the second one is. A lone anchor on the
//     last page is usually "previous"; the validation gate rejects it.
//   - RelNextResolver: the anchor carrying rel="next".
//   - LabelResolver: the first anchor whose text contains a label such as "Next".
package paginate
