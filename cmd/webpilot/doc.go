// Command webpilot maps semantic steps onto page snapshot elements and
// executes them through a browser, with ranked selector fallbacks and
// cross-session selector history.
package main
