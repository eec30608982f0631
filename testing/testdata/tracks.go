package testdata

// Recorded track points as posted by the cattracks apps.
// Speed and Heading are -1 when the device has no reading.

var Track_iOS_no_speed = `{
  "id": 0,
  "type": "Feature",
  "geometry": {
    "type": "Point",
    "coordinates": [-93.2554931640625, 44.98896789550781]
  },
  "properties": {
    "Accuracy": 23.13,
    "Activity": "Unknown",
    "Elevation": 328.43,
    "Heading": -1,
    "Name": "Rye16",
    "Speed": -1,
    "Time": "2024-12-23T15:31:56.728Z",
    "UUID": "5D37B5EA-6E0B-41FE-8A72-2BB681D661DA",
    "UnixTime": 1734967916,
    "Version": "V.customizableCatTrackHat"
  }
}
`

var Track_Android_slow = `{
  "id": 0,
  "type": "Feature",
  "bbox": [-113.4730765, 47.1787276, -113.4730765, 47.1787276],
  "geometry": {
    "type": "Point",
    "coordinates": [-113.4730765, 47.1787276]
  },
  "properties": {
    "Accuracy": 3.9,
    "Activity": "Stationary",
    "AmbientTemp": null,
    "Elevation": 1258.4,
    "Heading": 181.5,
    "Name": "ranga-moto-act3",
    "Pressure": null,
    "Speed": 0.06,
    "Time": "2024-12-23T15:05:34.710Z",
    "UUID": "76170e959f967f40",
    "UnixTime": 1734966334,
    "Version": "gcps/v0.0.0+4",
    "speed_accuracy": 3.2
  }
}
`
