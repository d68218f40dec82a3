package txfactory

// Contract ABI fragments for the ledger operations the flow compiler emits.
// Only the methods the presets call are listed; the full contract surfaces
// are much larger. Signatures are pinned to the deployed contracts.

// driverABIJSON covers the stream driver: stream updates and their audit
// metadata.
const driverABIJSON = `[
  {
    "type": "function",
    "name": "setDrips",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "erc20", "type": "address"},
      {"name": "currReceivers", "type": "tuple[]", "components": [
        {"name": "userId", "type": "uint256"},
        {"name": "config", "type": "uint256"}
      ]},
      {"name": "balanceDelta", "type": "int128"},
      {"name": "newReceivers", "type": "tuple[]", "components": [
        {"name": "userId", "type": "uint256"},
        {"name": "config", "type": "uint256"}
      ]},
      {"name": "transferTo", "type": "address"}
    ],
    "outputs": [
      {"name": "realBalanceDelta", "type": "int128"}
    ]
  },
  {
    "type": "function",
    "name": "emitUserMetadata",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "userMetadata", "type": "tuple[]", "components": [
        {"name": "key", "type": "bytes32"},
        {"name": "value", "type": "bytes"}
      ]}
    ],
    "outputs": []
  }
]`

// hubABIJSON covers the ledger hub: fund collection and squeezing.
const hubABIJSON = `[
  {
    "type": "function",
    "name": "squeezeDrips",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "userId", "type": "uint256"},
      {"name": "erc20", "type": "address"},
      {"name": "senderId", "type": "uint256"},
      {"name": "historyHash", "type": "bytes32"},
      {"name": "dripsHistory", "type": "tuple[]", "components": [
        {"name": "dripsHash", "type": "bytes32"},
        {"name": "receivers", "type": "tuple[]", "components": [
          {"name": "userId", "type": "uint256"},
          {"name": "config", "type": "uint256"}
        ]},
        {"name": "updateTime", "type": "uint32"},
        {"name": "maxEnd", "type": "uint32"}
      ]}
    ],
    "outputs": [
      {"name": "amt", "type": "uint128"}
    ]
  },
  {
    "type": "function",
    "name": "receiveDrips",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "userId", "type": "uint256"},
      {"name": "erc20", "type": "address"},
      {"name": "maxCycles", "type": "uint32"}
    ],
    "outputs": [
      {"name": "receivedAmt", "type": "uint128"}
    ]
  },
  {
    "type": "function",
    "name": "split",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "userId", "type": "uint256"},
      {"name": "erc20", "type": "address"},
      {"name": "currReceivers", "type": "tuple[]", "components": [
        {"name": "userId", "type": "uint256"},
        {"name": "weight", "type": "uint32"}
      ]}
    ],
    "outputs": [
      {"name": "collectableAmt", "type": "uint128"},
      {"name": "splitAmt", "type": "uint128"}
    ]
  },
  {
    "type": "function",
    "name": "collect",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "userId", "type": "uint256"},
      {"name": "erc20", "type": "address"},
      {"name": "transferTo", "type": "address"}
    ],
    "outputs": [
      {"name": "amt", "type": "uint128"}
    ]
  }
]`
