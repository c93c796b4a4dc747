// Package factory instantiates pluggable modules, such as metrics sinks, from
// configuration entries made of a type name and a map of raw settings.
// Implementations register a Factory under their type name at init time and
// decode their own settings with Decode:
//
//	_ = sinks.Register("influx", func(conf map[string]any) (MetricsSink, error) {
//	    var c InfluxConfig
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return NewInfluxSink(c), nil
//	})
package factory
