// Package scenario runs YAML-described component trees through the
// scheduler and checks the recorded notifications.
//
// A scenario declares scripted components (label, template, initial state
// and actions performed from hooks), a root template with its state, the
// notifications expected on mount and a list of steps. Each step changes
// state or requests a rerender, then states the exact hook sequence, the
// painted text, the number of deprecated-mutation warnings and the error
// kind the step must produce.
//
//	name: attrs only reach the components that use them
//	components:
//	  the-top:
//	    label: top
//	    template: 'Twitter: {{attrs.twitter}}'
//	root:
//	  template: '{{the-top twitter=(readonly view.twitter)}}'
//	  state: {twitter: '@tomdale'}
//	steps:
//	  - name: change twitter
//	    set: {twitter: '@hipstertomdale'}
//	    expect:
//	      hooks: [top:willUpdate, top:willReceiveAttrs, top:willRender, top:didUpdate, top:didRender]
package scenario
