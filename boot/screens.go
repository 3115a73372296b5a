package boot

// Built-in screens rendered before the server takes over. Both go through
// the layout engine so they obey the same root geometry and style rules as
// server-driven layouts.

const loadingScreen = `[
  {"type": "container", "w": "full", "h": "full", "flex": "column",
   "justify": "center", "align_items": "center", "gap": 12, "children": [
    {"type": "label", "id": "boot_status", "text": "Connecting...",
     "font_size": 20,
     "anim": {"type": "breathe", "min_opa": 100, "max_opa": 255}}
  ]}
]`

const provisioningScreen = `[
  {"type": "container", "w": "full", "h": "full", "flex": "column",
   "justify": "center", "align_items": "center", "gap": 16, "children": [
    {"type": "label", "text": "Setup required", "font_size": 24},
    {"type": "label", "id": "provision_hint",
     "text": "Join the device Wi-Fi to configure", "font_size": 16,
     "anim": {"type": "breathe", "min_opa": 120, "max_opa": 255}}
  ]}
]`
